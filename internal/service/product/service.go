package product

import (
	"context"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

// Service exposes the read surface of the catalog. Writes happen through the
// seed tooling and the stock ledger operations on the repository.
type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}
