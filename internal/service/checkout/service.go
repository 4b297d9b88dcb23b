package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/notify"
	"storefront/internal/payment"
	orderrepo "storefront/internal/repository/order"
	couponsvc "storefront/internal/service/coupon"
)

// Service coordinates the payment gateway and the order store. Two
// independent triggers can observe a succeeded intent (the client
// confirmation call and the gateway webhook) and both funnel into the same
// idempotent materialization step.
type Service struct {
	products productRepo
	carts    cartRepo
	coupons  couponValidator
	orders   orderRepo
	gateway  payment.Gateway
	notifier notify.Publisher
	stream   events.Stream
	pricing  Pricing
	logger   *log.Logger
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type cartRepo interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
}

type couponValidator interface {
	Validate(ctx context.Context, code string, orderCents int64, cartCategories []string) (*couponsvc.ValidationResult, error)
}

type orderRepo interface {
	CreatePaid(ctx context.Context, in orderrepo.CreateOrderInput) (*domain.Order, bool, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
}

func New(products productRepo, carts cartRepo, coupons couponValidator, orders orderRepo, gateway payment.Gateway, notifier notify.Publisher, stream events.Stream, pricing Pricing, logger *log.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if stream == nil {
		stream = events.Nop{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		products: products,
		carts:    carts,
		coupons:  coupons,
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
		stream:   stream,
		pricing:  pricing,
		logger:   logger,
	}
}

type CreateIntentInput struct {
	CouponCode    string         `json:"couponCode,omitempty"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	Address       domain.Address `json:"shippingAddress"`
}

type IntentResult struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Totals       Totals `json:"totals"`
}

// CreateIntent freezes the cart into a payment intent: every line is
// validated against the live catalog, totals are computed, and the whole
// checkout state is embedded as intent metadata. Stock is NOT decremented
// here; that happens only at order materialization, so an abandoned or
// timed-out intent leaves nothing to clean up.
func (s *Service) CreateIntent(ctx context.Context, userID string, in CreateIntentInput) (*IntentResult, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart is empty: %w", domain.ErrInvalidQuantity)
	}

	lines := make([]orderrepo.LineInput, 0, len(cart.Items))
	var subtotal int64
	for _, item := range cart.Items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("product %s no longer exists: %w", item.ProductName, domain.ErrNotFound)
			}
			return nil, err
		}
		if item.Quantity > product.Stock {
			return nil, fmt.Errorf("product %s has %d in stock: %w", product.Name, product.Stock, domain.ErrInsufficientStock)
		}
		// Checkout freezes pricing: the live catalog price becomes the
		// order's snapshot.
		lines = append(lines, orderrepo.LineInput{
			ProductID:      product.ID,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		})
		subtotal += product.PriceCents * int64(item.Quantity)
	}

	var discount int64
	var couponCode *string
	if in.CouponCode != "" {
		res, err := s.coupons.Validate(ctx, in.CouponCode, subtotal, cart.Categories())
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, fmt.Errorf("%s: %w", res.Reason, domain.ErrConflict)
		}
		discount = res.DiscountCents
		couponCode = &res.Coupon.Code
	}

	method := in.PaymentMethod
	if method == "" {
		method = "card"
	}

	data := checkoutData{
		UserID:        userID,
		Lines:         lines,
		Totals:        s.pricing.Quote(subtotal, discount),
		CouponCode:    couponCode,
		Address:       in.Address,
		PaymentMethod: method,
	}
	metadata, err := encodeMetadata(data)
	if err != nil {
		return nil, err
	}

	intentCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	intent, err := s.gateway.CreateIntent(intentCtx, data.Totals.TotalCents, s.pricing.Currency, metadata)
	if err != nil {
		return nil, err
	}

	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Totals:       data.Totals,
	}, nil
}

// ConfirmClient is the synchronous trigger: the payment UI reported success
// and the client asks for its order. The intent status is re-verified with
// the gateway rather than trusting the client, and the order is built from
// the intent's own metadata.
func (s *Service) ConfirmClient(ctx context.Context, userID, intentID string) (*domain.Order, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	data, err := decodeMetadata(intent.Metadata)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", intentID, err)
	}
	if data.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if intent.Status != payment.IntentStatusSucceeded {
		return nil, fmt.Errorf("payment intent %s is %s: %w", intentID, intent.Status, domain.ErrUpstream)
	}
	return s.materialize(ctx, intent.ID, data)
}

// HandleEvent is the asynchronous trigger: a signature-verified gateway
// webhook. It may arrive before, after, or concurrently with the client
// confirmation; materialization is idempotent either way.
func (s *Service) HandleEvent(ctx context.Context, ev *payment.Event) error {
	switch ev.Type {
	case payment.EventIntentSucceeded:
		data, err := decodeMetadata(ev.Data.Object.Metadata)
		if err != nil {
			return fmt.Errorf("webhook intent %s: %w", ev.Data.Object.ID, err)
		}
		_, err = s.materialize(ctx, ev.Data.Object.ID, data)
		return err
	case payment.EventIntentFailed, payment.EventIntentCanceled, payment.EventIntentRequiresAction:
		s.logger.Printf("checkout: intent %s event %s, no order action", ev.Data.Object.ID, ev.Type)
		return nil
	default:
		s.logger.Printf("checkout: ignoring webhook event type %s", ev.Type)
		return nil
	}
}

// materialize turns a succeeded intent into a paid order exactly once. The
// intent id is the idempotency key; a duplicate trigger gets the already
// created order back with no further side effects.
func (s *Service) materialize(ctx context.Context, intentID string, data *checkoutData) (*domain.Order, error) {
	if existing, err := s.orders.GetByPaymentIntent(ctx, intentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	order, created, err := s.orders.CreatePaid(ctx, orderrepo.CreateOrderInput{
		UserID:          data.UserID,
		PaymentIntentID: intentID,
		PaymentMethod:   data.PaymentMethod,
		Lines:           data.Lines,
		SubtotalCents:   data.Totals.SubtotalCents,
		ShippingCents:   data.Totals.ShippingCents,
		TaxCents:        data.Totals.TaxCents,
		DiscountCents:   data.Totals.DiscountCents,
		TotalCents:      data.Totals.TotalCents,
		Currency:        s.pricing.Currency,
		CouponCode:      data.CouponCode,
		Address:         data.Address,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return order, nil
	}

	userCh := notify.UserChannel(order.UserID)
	_ = s.notifier.Publish(ctx, userCh, "order.created", order)
	_ = s.notifier.Publish(ctx, userCh, "cart.cleared", nil)
	_ = s.notifier.Publish(ctx, notify.AdminChannel, "order.created", order)

	_ = s.stream.Emit(ctx, events.TopicOrderCreated, order.ID, events.OrderCreatedRecord{
		SchemaVersion: 1,
		OrderID:       order.ID,
		Number:        order.Number,
		UserID:        order.UserID,
		TotalCents:    order.TotalCents,
		DiscountCents: order.DiscountCents,
		Currency:      order.Currency,
		ItemCount:     len(order.Items),
		CouponCode:    derefOrEmpty(order.CouponCode),
		CreatedAt:     order.CreatedAt,
	})
	if order.CouponCode != nil {
		_ = s.stream.Emit(ctx, events.TopicCouponApplied, *order.CouponCode, events.CouponAppliedRecord{
			SchemaVersion: 1,
			Code:          *order.CouponCode,
			OrderID:       order.ID,
			DiscountCents: order.DiscountCents,
			AppliedAt:     order.CreatedAt,
		})
	}

	return order, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
