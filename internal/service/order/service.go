package order

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/notify"
	orderrepo "storefront/internal/repository/order"
)

// Service drives the post-creation order state machine: fulfillment status
// transitions and cancellation with stock compensation.
type Service struct {
	repo     repo
	notifier notify.Publisher
	stream   events.Stream
}

type repo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, f orderrepo.ListFilter) ([]domain.Order, int64, error)
	List(ctx context.Context, f orderrepo.ListFilter) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id, status string, tracking, notes *string) (*domain.Order, error)
	Cancel(ctx context.Context, id string) (*domain.Order, error)
}

func New(r repo, notifier notify.Publisher, stream events.Stream) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if stream == nil {
		stream = events.Nop{}
	}
	return &Service{repo: r, notifier: notifier, stream: stream}
}

type Page struct {
	Orders   []domain.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

func (s *Service) ListMine(ctx context.Context, userID string, f orderrepo.ListFilter) (*Page, error) {
	orders, total, err := s.repo.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	return newPage(orders, total, f), nil
}

// AdminList supports filtering by status, payment status and user, plus a
// partial match on the order id or number.
func (s *Service) AdminList(ctx context.Context, f orderrepo.ListFilter) (*Page, error) {
	orders, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return newPage(orders, total, f), nil
}

// Get returns an order, refusing access to non-owners unless admin.
func (s *Service) Get(ctx context.Context, userID string, admin bool, orderID string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		// Non-owners cannot learn whether the order exists.
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// Cancel moves the order to cancelled, restores the stock its creation
// decremented and marks the payment refunded. Terminal orders are refused.
func (s *Service) Cancel(ctx context.Context, userID string, admin bool, orderID string) (*domain.Order, error) {
	before, err := s.Get(ctx, userID, admin, orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, o, "order.cancelled", before.OrderStatus)
	return o, nil
}

type StatusUpdateInput struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// AdminUpdateStatus applies a forward fulfillment transition. Cancellation
// goes through Cancel because it compensates stock.
func (s *Service) AdminUpdateStatus(ctx context.Context, orderID string, in StatusUpdateInput) (*domain.Order, error) {
	if in.Status == domain.OrderStatusCancelled {
		return s.Cancel(ctx, "", true, orderID)
	}

	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.OrderStatus, in.Status) {
		return nil, fmt.Errorf("cannot move order from %s to %s: %w", current.OrderStatus, in.Status, domain.ErrConflict)
	}

	o, err := s.repo.UpdateStatus(ctx, orderID, in.Status, in.TrackingNumber, in.Notes)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, o, "order.status", current.OrderStatus)
	return o, nil
}

func (s *Service) publishTransition(ctx context.Context, o *domain.Order, event, from string) {
	_ = s.notifier.Publish(ctx, notify.UserChannel(o.UserID), event, o)
	_ = s.notifier.Publish(ctx, notify.AdminChannel, event, o)
	_ = s.stream.Emit(ctx, events.TopicOrderStatus, o.ID, events.OrderStatusRecord{
		SchemaVersion: 1,
		OrderID:       o.ID,
		UserID:        o.UserID,
		FromStatus:    from,
		ToStatus:      o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		ChangedAt:     time.Now().UTC(),
	})
}

func newPage(orders []domain.Order, total int64, f orderrepo.ListFilter) *Page {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &Page{Orders: orders, Total: total, Page: page, PageSize: size}
}
