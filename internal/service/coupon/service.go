package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type Service struct {
	repo couponRepo
	now  func() time.Time
}

type couponRepo interface {
	Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Update(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, code string) error
}

func New(repo couponRepo) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ValidationResult carries the outcome of a coupon check. Reason is set
// whenever Valid is false and is safe to show to the shopper.
type ValidationResult struct {
	Valid         bool           `json:"valid"`
	DiscountCents int64          `json:"discountCents"`
	Reason        string         `json:"reason,omitempty"`
	Coupon        *domain.Coupon `json:"coupon,omitempty"`
}

func invalid(reason string) *ValidationResult {
	return &ValidationResult{Valid: false, Reason: reason}
}

// Validate checks a coupon against an order amount and the categories in the
// cart, and computes the capped discount. Business rejections come back as
// Valid=false with a reason; only storage failures surface as errors.
func (s *Service) Validate(ctx context.Context, code string, orderCents int64, cartCategories []string) (*ValidationResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return invalid("coupon code is required"), nil
	}
	if orderCents <= 0 {
		return invalid("order amount must be positive"), nil
	}

	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return invalid("coupon not found"), nil
		}
		return nil, err
	}

	now := s.now()
	switch {
	case !c.IsActive:
		return invalid("coupon is not active"), nil
	case !now.Before(c.ExpiresAt):
		return invalid("coupon has expired"), nil
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return invalid("coupon usage limit reached"), nil
	case c.MinimumOrderCents != nil && orderCents < *c.MinimumOrderCents:
		return invalid(fmt.Sprintf("order must be at least %d cents to use this coupon", *c.MinimumOrderCents)), nil
	}

	if len(c.ApplicableCategories) > 0 && !intersects(c.ApplicableCategories, cartCategories) {
		return invalid("coupon does not apply to any item in the cart"), nil
	}

	discount := Discount(c, orderCents)
	return &ValidationResult{Valid: true, DiscountCents: discount, Coupon: c}, nil
}

// Discount computes the capped discount in cents: percentage or fixed value,
// clamped to the maximum discount if set, then to the order amount, rounded
// half-up to whole cents.
func Discount(c *domain.Coupon, orderCents int64) int64 {
	if orderCents <= 0 {
		return 0
	}
	amount := decimal.NewFromInt(orderCents)

	var d decimal.Decimal
	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		d = amount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	case domain.DiscountTypeFixed:
		d = c.DiscountValue
	default:
		return 0
	}

	if c.MaximumDiscountCents != nil {
		max := decimal.NewFromInt(*c.MaximumDiscountCents)
		if d.GreaterThan(max) {
			d = max
		}
	}
	if d.GreaterThan(amount) {
		d = amount
	}
	if d.IsNegative() {
		return 0
	}
	return d.Round(0).IntPart()
}

// Apply redeems the coupon by incrementing its usage counter. It must be
// invoked exactly once per order; the order materialization transaction is
// the only caller on the checkout path.
func (s *Service) Apply(ctx context.Context, code string) error {
	return s.repo.IncrementUsage(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Coupon, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	if err := validateCoupon(&c); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("coupon id required: %w", domain.ErrNotFound)
	}
	if err := validateCoupon(&c); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateCoupon(c *domain.Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return errors.New("coupon code required")
	}
	if c.DiscountType != domain.DiscountTypePercentage && c.DiscountType != domain.DiscountTypeFixed {
		return errors.New("discount type must be percentage or fixed")
	}
	if !c.DiscountValue.IsPositive() {
		return errors.New("discount value must be positive")
	}
	if c.DiscountType == domain.DiscountTypePercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("percentage discount cannot exceed 100")
	}
	if c.ExpiresAt.IsZero() {
		return errors.New("expiry date required")
	}
	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return errors.New("usage limit must be positive when set")
	}
	return nil
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}
