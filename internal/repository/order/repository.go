package order

import (
	"context"

	"storefront/internal/domain"
)

// LineInput identifies one order line to materialize. The unit price is the
// snapshot taken at intent-creation time, not the live catalog price.
type LineInput struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int64
}

type CreateOrderInput struct {
	UserID          string
	PaymentIntentID string
	PaymentMethod   string
	Lines           []LineInput
	SubtotalCents   int64
	ShippingCents   int64
	TaxCents        int64
	DiscountCents   int64
	TotalCents      int64
	Currency        string
	CouponCode      *string
	Address         domain.Address
}

type ListFilter struct {
	Status        string
	PaymentStatus string
	UserID        string
	Search        string
	Page          int
	PageSize      int
}

type Repository interface {
	// CreatePaid materializes a paid order as a single transaction: stock is
	// decremented per line, the order and its items are inserted, the coupon
	// usage is incremented once, and the originating cart is deleted. Any
	// failure rolls back everything. The payment intent id is the idempotency
	// key; when an order for it already exists the existing order is returned
	// with created=false and no side effects.
	CreatePaid(ctx context.Context, in CreateOrderInput) (o *domain.Order, created bool, err error)

	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]domain.Order, int64, error)
	List(ctx context.Context, f ListFilter) ([]domain.Order, int64, error)

	UpdateStatus(ctx context.Context, id, status string, tracking, notes *string) (*domain.Order, error)

	// Cancel restores the stock each line had decremented, sets the order
	// cancelled and the payment refunded. Terminal orders are refused with
	// domain.ErrConflict.
	Cancel(ctx context.Context, id string) (*domain.Order, error)
}
