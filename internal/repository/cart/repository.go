package cart

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// GetByUser returns the user's cart, creating an empty one on first use.
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// AddItem adds qty to an existing line or inserts a new one. The unit
	// price is re-snapshotted from the given product either way.
	AddItem(ctx context.Context, cartID string, p domain.Product, qty int) error

	// SetItemQuantity replaces the line quantity and re-snapshots the price.
	SetItemQuantity(ctx context.Context, cartID string, p domain.Product, qty int) error

	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}
