package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/payment"
	orderrepo "storefront/internal/repository/order"
	couponsvc "storefront/internal/service/coupon"
)

type stubProducts struct {
	products map[string]*domain.Product
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type stubCarts struct {
	cart *domain.Cart
}

func (s *stubCarts) GetByUser(_ context.Context, _ string) (*domain.Cart, error) {
	return s.cart, nil
}

type stubCoupons struct {
	result *couponsvc.ValidationResult
}

func (s *stubCoupons) Validate(_ context.Context, _ string, _ int64, _ []string) (*couponsvc.ValidationResult, error) {
	if s.result == nil {
		return &couponsvc.ValidationResult{Valid: false, Reason: "coupon not found"}, nil
	}
	return s.result, nil
}

// memOrders mimics the repository's idempotency contract: one order per
// payment intent, stock decremented once on creation.
type memOrders struct {
	byIntent    map[string]*domain.Order
	createCalls int
	stock       map[string]int
	failStock   bool
}

func newMemOrders() *memOrders {
	return &memOrders{byIntent: map[string]*domain.Order{}, stock: map[string]int{}}
}

func (m *memOrders) GetByPaymentIntent(_ context.Context, intentID string) (*domain.Order, error) {
	if o, ok := m.byIntent[intentID]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memOrders) CreatePaid(_ context.Context, in orderrepo.CreateOrderInput) (*domain.Order, bool, error) {
	if o, ok := m.byIntent[in.PaymentIntentID]; ok {
		return o, false, nil
	}
	m.createCalls++
	if m.failStock {
		return nil, false, domain.ErrInsufficientStock
	}
	for _, line := range in.Lines {
		m.stock[line.ProductID] -= line.Quantity
	}
	o := &domain.Order{
		ID:              fmt.Sprintf("order-%d", m.createCalls),
		UserID:          in.UserID,
		PaymentIntentID: &in.PaymentIntentID,
		PaymentStatus:   domain.PaymentStatusCompleted,
		OrderStatus:     domain.OrderStatusPending,
		SubtotalCents:   in.SubtotalCents,
		ShippingCents:   in.ShippingCents,
		TaxCents:        in.TaxCents,
		DiscountCents:   in.DiscountCents,
		TotalCents:      in.TotalCents,
		CouponCode:      in.CouponCode,
	}
	m.byIntent[in.PaymentIntentID] = o
	return o, true, nil
}

type stubGateway struct {
	created []*payment.Intent
	intents map[string]*payment.Intent
	nextID  int
}

func newStubGateway() *stubGateway {
	return &stubGateway{intents: map[string]*payment.Intent{}}
}

func (g *stubGateway) CreateIntent(_ context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.nextID++
	intent := &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", g.nextID),
		ClientSecret: fmt.Sprintf("pi_%d_secret", g.nextID),
		Status:       payment.IntentStatusRequiresAction,
		AmountCents:  amountCents,
		Currency:     currency,
		Metadata:     metadata,
	}
	g.created = append(g.created, intent)
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *stubGateway) RetrieveIntent(_ context.Context, id string) (*payment.Intent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return intent, nil
}

func testPricing() Pricing {
	return Pricing{Currency: "USD", ShippingFlatCents: 500, FreeShippingThresholdCents: 20000}
}

func testCart() *domain.Cart {
	return &domain.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Items: []domain.CartItem{
			{ProductID: "pA", ProductName: "Tee", Category: "apparel", Quantity: 2, UnitPriceCents: 5000},
		},
	}
}

func testProducts() *stubProducts {
	return &stubProducts{products: map[string]*domain.Product{
		"pA": {ID: "pA", Name: "Tee", Category: "apparel", PriceCents: 5000, Stock: 10},
	}}
}

func newTestService(gw *stubGateway, orders *memOrders, coupons couponValidator) *Service {
	if coupons == nil {
		coupons = &stubCoupons{}
	}
	return New(testProducts(), &stubCarts{cart: testCart()}, coupons, orders, gw, nil, nil, testPricing(), nil)
}

func succeed(gw *stubGateway, intentID string) {
	gw.intents[intentID].Status = payment.IntentStatusSucceeded
}

func createSucceededIntent(t *testing.T, svc *Service, gw *stubGateway) string {
	t.Helper()
	res, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	succeed(gw, res.IntentID)
	return res.IntentID
}

func webhookFor(gw *stubGateway, intentID string) *payment.Event {
	ev := &payment.Event{ID: "evt_1", Type: payment.EventIntentSucceeded}
	ev.Data.Object = *gw.intents[intentID]
	return ev
}

func TestCreateIntentEmbedsCheckoutMetadata(t *testing.T) {
	gw := newStubGateway()
	svc := newTestService(gw, newMemOrders(), nil)

	res, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{
		Address: domain.Address{FullName: "A Shopper", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	// subtotal 10000, shipping 500, no tax, no discount
	if res.Totals.TotalCents != 10500 {
		t.Fatalf("expected total 10500, got %d", res.Totals.TotalCents)
	}

	data, err := decodeMetadata(gw.created[0].Metadata)
	if err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if data.UserID != "u1" {
		t.Fatalf("expected user u1 in metadata, got %s", data.UserID)
	}
	if len(data.Lines) != 1 || data.Lines[0].ProductID != "pA" || data.Lines[0].Quantity != 2 || data.Lines[0].UnitPriceCents != 5000 {
		t.Fatalf("unexpected lines %+v", data.Lines)
	}
	if data.Address.Line1 != "1 Main St" {
		t.Fatalf("address not round-tripped: %+v", data.Address)
	}
}

func TestCreateIntentRejectsEmptyCart(t *testing.T) {
	gw := newStubGateway()
	svc := New(testProducts(), &stubCarts{cart: &domain.Cart{ID: "cart-1", UserID: "u1"}}, &stubCoupons{}, newMemOrders(), gw, nil, nil, testPricing(), nil)

	if _, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{}); err == nil {
		t.Fatal("expected error for empty cart")
	}
	if len(gw.created) != 0 {
		t.Fatal("no intent should be created for an empty cart")
	}
}

func TestCreateIntentRejectsInsufficientStock(t *testing.T) {
	products := testProducts()
	products.products["pA"].Stock = 1
	gw := newStubGateway()
	svc := New(products, &stubCarts{cart: testCart()}, &stubCoupons{}, newMemOrders(), gw, nil, nil, testPricing(), nil)

	_, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCreateIntentUsesLiveCatalogPrice(t *testing.T) {
	products := testProducts()
	products.products["pA"].PriceCents = 6000 // price changed since the cart line was added
	gw := newStubGateway()
	svc := New(products, &stubCarts{cart: testCart()}, &stubCoupons{}, newMemOrders(), gw, nil, nil, testPricing(), nil)

	res, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if res.Totals.SubtotalCents != 12000 {
		t.Fatalf("expected subtotal from live price 12000, got %d", res.Totals.SubtotalCents)
	}
}

func TestConfirmThenWebhookCreatesOneOrder(t *testing.T) {
	gw := newStubGateway()
	orders := newMemOrders()
	orders.stock["pA"] = 10
	svc := newTestService(gw, orders, nil)

	intentID := createSucceededIntent(t, svc, gw)

	first, err := svc.ConfirmClient(context.Background(), "u1", intentID)
	if err != nil {
		t.Fatalf("ConfirmClient: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), webhookFor(gw, intentID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if orders.createCalls != 1 {
		t.Fatalf("expected exactly one order creation, got %d", orders.createCalls)
	}
	if orders.stock["pA"] != 8 {
		t.Fatalf("expected one stock decrement (10->8), got %d", orders.stock["pA"])
	}
	if got := orders.byIntent[intentID]; got.ID != first.ID {
		t.Fatalf("duplicate trigger produced a different order: %s vs %s", got.ID, first.ID)
	}
}

func TestWebhookThenConfirmCreatesOneOrder(t *testing.T) {
	gw := newStubGateway()
	orders := newMemOrders()
	orders.stock["pA"] = 10
	svc := newTestService(gw, orders, nil)

	intentID := createSucceededIntent(t, svc, gw)

	if err := svc.HandleEvent(context.Background(), webhookFor(gw, intentID)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	confirmed, err := svc.ConfirmClient(context.Background(), "u1", intentID)
	if err != nil {
		t.Fatalf("ConfirmClient after webhook: %v", err)
	}

	if orders.createCalls != 1 {
		t.Fatalf("expected exactly one order creation, got %d", orders.createCalls)
	}
	if orders.stock["pA"] != 8 {
		t.Fatalf("expected one stock decrement (10->8), got %d", orders.stock["pA"])
	}
	if confirmed.ID != orders.byIntent[intentID].ID {
		t.Fatal("confirm did not return the webhook-created order")
	}
}

func TestConfirmRejectsUnsucceededIntent(t *testing.T) {
	gw := newStubGateway()
	svc := newTestService(gw, newMemOrders(), nil)

	res, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	if _, err := svc.ConfirmClient(context.Background(), "u1", res.IntentID); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for unsucceeded intent, got %v", err)
	}
}

func TestConfirmRejectsForeignIntent(t *testing.T) {
	gw := newStubGateway()
	svc := newTestService(gw, newMemOrders(), nil)

	intentID := createSucceededIntent(t, svc, gw)

	if _, err := svc.ConfirmClient(context.Background(), "someone-else", intentID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestMaterializationFailureSurfacesToClient(t *testing.T) {
	gw := newStubGateway()
	orders := newMemOrders()
	orders.failStock = true
	svc := newTestService(gw, orders, nil)

	intentID := createSucceededIntent(t, svc, gw)

	if _, err := svc.ConfirmClient(context.Background(), "u1", intentID); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if len(orders.byIntent) != 0 {
		t.Fatal("no order should exist after a failed materialization")
	}
}

func TestWebhookIgnoresOtherLifecycleEvents(t *testing.T) {
	gw := newStubGateway()
	orders := newMemOrders()
	svc := newTestService(gw, orders, nil)

	intentID := createSucceededIntent(t, svc, gw)

	ev := webhookFor(gw, intentID)
	ev.Type = payment.EventIntentFailed
	if err := svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if orders.createCalls != 0 {
		t.Fatal("failed intent must not create an order")
	}
}

func TestCheckoutWithCouponScenario(t *testing.T) {
	// Cart: product A, price 5000, qty 2. Coupon SAVE10: 10%, no cap.
	code := "SAVE10"
	coupons := &stubCoupons{result: &couponsvc.ValidationResult{
		Valid:         true,
		DiscountCents: 1000,
		Coupon:        &domain.Coupon{Code: code},
	}}
	gw := newStubGateway()
	orders := newMemOrders()
	orders.stock["pA"] = 10
	svc := newTestService(gw, orders, coupons)

	res, err := svc.CreateIntent(context.Background(), "u1", CreateIntentInput{CouponCode: code})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if res.Totals.SubtotalCents != 10000 || res.Totals.DiscountCents != 1000 {
		t.Fatalf("unexpected totals %+v", res.Totals)
	}
	// shipping/tax applied before the discount is subtracted
	if res.Totals.TotalCents != 10000+500-1000 {
		t.Fatalf("expected total 9500, got %d", res.Totals.TotalCents)
	}

	succeed(gw, res.IntentID)
	order, err := svc.ConfirmClient(context.Background(), "u1", res.IntentID)
	if err != nil {
		t.Fatalf("ConfirmClient: %v", err)
	}
	if order.CouponCode == nil || *order.CouponCode != code {
		t.Fatalf("coupon snapshot missing on order: %+v", order.CouponCode)
	}
	if orders.stock["pA"] != 8 {
		t.Fatalf("expected stock 10->8, got %d", orders.stock["pA"])
	}
}
