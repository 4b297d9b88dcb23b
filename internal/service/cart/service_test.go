package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
)

type stubRepo struct {
	cart          *domain.Cart
	getErr        error
	addErr        error
	setErr        error
	removeErr     error
	clearErr      error
	lastAddCartID string
	lastAddProd   domain.Product
	lastAddQty    int
	lastSetProd   domain.Product
	lastSetQty    int
	removedProd   string
	cleared       bool
}

func (s *stubRepo) GetByUser(_ context.Context, _ string) (*domain.Cart, error) {
	return s.cart, s.getErr
}

func (s *stubRepo) AddItem(_ context.Context, cartID string, p domain.Product, qty int) error {
	s.lastAddCartID = cartID
	s.lastAddProd = p
	s.lastAddQty = qty
	return s.addErr
}

func (s *stubRepo) SetItemQuantity(_ context.Context, _ string, p domain.Product, qty int) error {
	s.lastSetProd = p
	s.lastSetQty = qty
	return s.setErr
}

func (s *stubRepo) RemoveItem(_ context.Context, _, productID string) error {
	s.removedProd = productID
	return s.removeErr
}

func (s *stubRepo) Clear(_ context.Context, _ string) error {
	s.cleared = true
	return s.clearErr
}

type stubProductRepo struct {
	product *domain.Product
	err     error
	lastID  string
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.lastID = id
	return s.product, s.err
}

type recordingPublisher struct {
	channels []string
	events   []string
}

func (r *recordingPublisher) Publish(_ context.Context, channel, event string, _ interface{}) error {
	r.channels = append(r.channels, channel)
	r.events = append(r.events, event)
	return nil
}

func emptyCart() *domain.Cart {
	return &domain.Cart{ID: "cart-1", UserID: "u1"}
}

func TestAddRejectsQuantityOutOfBounds(t *testing.T) {
	svc := New(&stubRepo{cart: emptyCart()}, &stubProductRepo{}, nil)

	for _, qty := range []int{0, -3, 101} {
		if _, err := svc.Add(context.Background(), "u1", "p1", qty); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("qty %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
}

func TestAddRejectsUnknownProduct(t *testing.T) {
	svc := New(&stubRepo{cart: emptyCart()}, &stubProductRepo{err: domain.ErrNotFound}, nil)

	if _, err := svc.Add(context.Background(), "u1", "missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddRejectsInsufficientStock(t *testing.T) {
	products := &stubProductRepo{product: &domain.Product{ID: "p1", Name: "Tee", Stock: 3}}
	svc := New(&stubRepo{cart: emptyCart()}, products, nil)

	if _, err := svc.Add(context.Background(), "u1", "p1", 4); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestAddChecksCumulativeQuantityAgainstStock(t *testing.T) {
	cart := emptyCart()
	cart.Items = []domain.CartItem{{ProductID: "p1", Quantity: 3}}
	products := &stubProductRepo{product: &domain.Product{ID: "p1", Name: "Tee", Stock: 5}}
	svc := New(&stubRepo{cart: cart}, products, nil)

	if _, err := svc.Add(context.Background(), "u1", "p1", 3); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for cumulative qty, got %v", err)
	}
}

func TestAddSnapshotsCurrentPrice(t *testing.T) {
	repo := &stubRepo{cart: emptyCart()}
	products := &stubProductRepo{product: &domain.Product{ID: "p1", Name: "Tee", PriceCents: 2599, Stock: 10}}
	svc := New(repo, products, nil)

	if _, err := svc.Add(context.Background(), "u1", "p1", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastAddProd.PriceCents != 2599 {
		t.Fatalf("expected current catalog price 2599, got %d", repo.lastAddProd.PriceCents)
	}
	if repo.lastAddQty != 2 || repo.lastAddCartID != "cart-1" {
		t.Fatalf("unexpected add call: qty=%d cart=%s", repo.lastAddQty, repo.lastAddCartID)
	}
}

func TestAddNotifiesOwnerChannel(t *testing.T) {
	pub := &recordingPublisher{}
	products := &stubProductRepo{product: &domain.Product{ID: "p1", Stock: 10}}
	svc := New(&stubRepo{cart: emptyCart()}, products, pub)

	if _, err := svc.Add(context.Background(), "u1", "p1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.channels) != 1 || pub.channels[0] != "user.u1" {
		t.Fatalf("expected publish to user.u1, got %v", pub.channels)
	}
	if pub.events[0] != "cart.updated" {
		t.Fatalf("expected cart.updated event, got %s", pub.events[0])
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	repo := &stubRepo{cart: emptyCart()}
	svc := New(repo, &stubProductRepo{}, nil)

	if _, err := svc.SetQuantity(context.Background(), "u1", "p1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.removedProd != "p1" {
		t.Fatalf("expected line removal, removed=%q", repo.removedProd)
	}
}

func TestSetQuantityRejectsOverStock(t *testing.T) {
	products := &stubProductRepo{product: &domain.Product{ID: "p1", Stock: 2}}
	svc := New(&stubRepo{cart: emptyCart()}, products, nil)

	if _, err := svc.SetQuantity(context.Background(), "u1", "p1", 3); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestRemoveMissingLineIsNotAnError(t *testing.T) {
	repo := &stubRepo{cart: emptyCart(), removeErr: domain.ErrNotFound}
	svc := New(repo, &stubProductRepo{}, nil)

	if _, err := svc.Remove(context.Background(), "u1", "p-gone"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClear(t *testing.T) {
	repo := &stubRepo{cart: emptyCart()}
	pub := &recordingPublisher{}
	svc := New(repo, &stubProductRepo{}, pub)

	if _, err := svc.Clear(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.cleared {
		t.Fatal("expected repository Clear to be called")
	}
	if len(pub.events) != 1 || pub.events[0] != "cart.updated" {
		t.Fatalf("expected cart.updated notification, got %v", pub.events)
	}
}
