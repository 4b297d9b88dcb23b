package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)

	// DecrementStock atomically subtracts qty from available stock. It fails
	// with domain.ErrInsufficientStock when stock < qty, without ever letting
	// the counter go negative.
	DecrementStock(ctx context.Context, id string, qty int) error

	// RestoreStock atomically adds qty back, the inverse of DecrementStock.
	RestoreStock(ctx context.Context, id string, qty int) error
}
