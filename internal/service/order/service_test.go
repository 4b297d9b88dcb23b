package order

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/events"
	orderrepo "storefront/internal/repository/order"
)

type stubRepo struct {
	orders map[string]*domain.Order
}

func newStubRepo(orders ...*domain.Order) *stubRepo {
	r := &stubRepo{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *stubRepo) ListByUser(_ context.Context, userID string, _ orderrepo.ListFilter) ([]domain.Order, int64, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubRepo) List(_ context.Context, _ orderrepo.ListFilter) ([]domain.Order, int64, error) {
	var out []domain.Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *stubRepo) UpdateStatus(_ context.Context, id, status string, tracking, notes *string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.OrderStatus = status
	if tracking != nil {
		o.TrackingNumber = *tracking
	}
	if notes != nil {
		o.Notes = *notes
	}
	cp := *o
	return &cp, nil
}

func (r *stubRepo) Cancel(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !domain.Cancellable(o.OrderStatus) {
		return nil, domain.ErrConflict
	}
	o.OrderStatus = domain.OrderStatusCancelled
	o.PaymentStatus = domain.PaymentStatusRefunded
	cp := *o
	return &cp, nil
}

type recordingPublisher struct {
	channels []string
	names    []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel, event string, _ any) error {
	p.channels = append(p.channels, channel)
	p.names = append(p.names, event)
	return nil
}

type recordingStream struct {
	topics  []string
	records []any
}

func (s *recordingStream) Emit(_ context.Context, topic, _ string, record any) error {
	s.topics = append(s.topics, topic)
	s.records = append(s.records, record)
	return nil
}

func pendingOrder(id, userID string) *domain.Order {
	return &domain.Order{
		ID:            id,
		Number:        "ORD-TEST",
		UserID:        userID,
		PaymentStatus: domain.PaymentStatusCompleted,
		OrderStatus:   domain.OrderStatusPending,
	}
}

func TestGetHidesForeignOrders(t *testing.T) {
	svc := New(newStubRepo(pendingOrder("o1", "u1")), nil, nil)

	if _, err := svc.Get(context.Background(), "u2", false, "o1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign order, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "u2", true, "o1"); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", false, "o1"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
}

func TestCancelRestoresAndNotifies(t *testing.T) {
	repo := newStubRepo(pendingOrder("o1", "u1"))
	pub := &recordingPublisher{}
	stream := &recordingStream{}
	svc := New(repo, pub, stream)

	o, err := svc.Cancel(context.Background(), "u1", false, "o1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.OrderStatus != domain.OrderStatusCancelled || o.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("unexpected post-cancel state %s/%s", o.OrderStatus, o.PaymentStatus)
	}

	if len(pub.channels) != 2 || pub.channels[0] != "user.u1" || pub.channels[1] != "admin" {
		t.Fatalf("unexpected channels %v", pub.channels)
	}
	if pub.names[0] != "order.cancelled" {
		t.Fatalf("unexpected event name %s", pub.names[0])
	}
	if len(stream.topics) != 1 || stream.topics[0] != events.TopicOrderStatus {
		t.Fatalf("unexpected topics %v", stream.topics)
	}
	rec := stream.records[0].(events.OrderStatusRecord)
	if rec.FromStatus != domain.OrderStatusPending || rec.ToStatus != domain.OrderStatusCancelled {
		t.Fatalf("unexpected transition record %+v", rec)
	}
}

func TestCancelRefusesTerminalOrder(t *testing.T) {
	delivered := pendingOrder("o1", "u1")
	delivered.OrderStatus = domain.OrderStatusDelivered
	svc := New(newStubRepo(delivered), nil, nil)

	if _, err := svc.Cancel(context.Background(), "u1", false, "o1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCancelByNonOwner(t *testing.T) {
	svc := New(newStubRepo(pendingOrder("o1", "u1")), nil, nil)

	if _, err := svc.Cancel(context.Background(), "u2", false, "o1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminUpdateStatusValidTransition(t *testing.T) {
	repo := newStubRepo(pendingOrder("o1", "u1"))
	pub := &recordingPublisher{}
	svc := New(repo, pub, nil)

	tracking := "TRACK123"
	o, err := svc.AdminUpdateStatus(context.Background(), "o1", StatusUpdateInput{
		Status:         domain.OrderStatusShipped,
		TrackingNumber: &tracking,
	})
	if err != nil {
		t.Fatalf("AdminUpdateStatus: %v", err)
	}
	if o.OrderStatus != domain.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", o.OrderStatus)
	}
	if o.TrackingNumber != tracking {
		t.Fatal("tracking number not recorded")
	}
	if len(pub.names) == 0 || pub.names[0] != "order.status" {
		t.Fatalf("expected order.status notification, got %v", pub.names)
	}
}

func TestAdminUpdateStatusRejectsBackwardTransition(t *testing.T) {
	shipped := pendingOrder("o1", "u1")
	shipped.OrderStatus = domain.OrderStatusShipped
	svc := New(newStubRepo(shipped), nil, nil)

	for _, target := range []string{domain.OrderStatusPending, domain.OrderStatusProcessing} {
		if _, err := svc.AdminUpdateStatus(context.Background(), "o1", StatusUpdateInput{Status: target}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("shipped -> %s: expected ErrConflict, got %v", target, err)
		}
	}
}

func TestAdminUpdateStatusCancelDelegates(t *testing.T) {
	repo := newStubRepo(pendingOrder("o1", "u1"))
	pub := &recordingPublisher{}
	svc := New(repo, pub, nil)

	o, err := svc.AdminUpdateStatus(context.Background(), "o1", StatusUpdateInput{Status: domain.OrderStatusCancelled})
	if err != nil {
		t.Fatalf("AdminUpdateStatus cancel: %v", err)
	}
	if o.OrderStatus != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", o.OrderStatus)
	}
	if pub.names[0] != "order.cancelled" {
		t.Fatalf("expected order.cancelled event, got %s", pub.names[0])
	}
}

func TestListMinePaginationDefaults(t *testing.T) {
	svc := New(newStubRepo(pendingOrder("o1", "u1"), pendingOrder("o2", "u1"), pendingOrder("o3", "u2")), nil, nil)

	page, err := svc.ListMine(context.Background(), "u1", orderrepo.ListFilter{})
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 orders for u1, got %d", page.Total)
	}
	if page.Page != 1 || page.PageSize != 20 {
		t.Fatalf("expected defaulted pagination 1/20, got %d/%d", page.Page, page.PageSize)
	}
}
