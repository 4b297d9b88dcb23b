package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

type Service struct {
	repo     cartRepo
	products productRepo
	notifier notify.Publisher
}

type cartRepo interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID string, p domain.Product, qty int) error
	SetItemQuantity(ctx context.Context, cartID string, p domain.Product, qty int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, products productRepo, notifier notify.Publisher) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, products: products, notifier: notifier}
}

// Get returns the user's cart, lazily creating an empty one.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.repo.GetByUser(ctx, userID)
}

// Add puts qty more of a product into the cart. The cumulative line quantity
// must stay within bounds and within live stock, and the unit price is
// re-snapshotted from the current catalog price.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if qty < domain.MinLineQuantity || qty > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cumulative := qty
	for _, item := range cart.Items {
		if item.ProductID == productID {
			cumulative += item.Quantity
			break
		}
	}
	if cumulative > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	if cumulative > product.Stock {
		return nil, fmt.Errorf("product %s has %d in stock: %w", product.Name, product.Stock, domain.ErrInsufficientStock)
	}

	if err := s.repo.AddItem(ctx, cart.ID, *product, qty); err != nil {
		return nil, err
	}
	return s.finish(ctx, userID)
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if qty == 0 {
		return s.Remove(ctx, userID, productID)
	}
	if qty < domain.MinLineQuantity || qty > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > product.Stock {
		return nil, fmt.Errorf("product %s has %d in stock: %w", product.Name, product.Stock, domain.ErrInsufficientStock)
	}

	if err := s.repo.SetItemQuantity(ctx, cart.ID, *product, qty); err != nil {
		return nil, err
	}
	return s.finish(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, productID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.finish(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.finish(ctx, userID)
}

// finish re-reads the cart so derived totals reflect the mutation, then
// notifies the owner. The publish result is discarded on purpose.
func (s *Service) finish(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = s.notifier.Publish(ctx, notify.UserChannel(userID), "cart.updated", cart)
	return cart, nil
}
