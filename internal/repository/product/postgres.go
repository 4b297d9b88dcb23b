package product

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx,
// so the stock ledger can run standalone or inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const productColumns = `id::text, sku, name, COALESCE(description, ''), COALESCE(image_url, ''), category, price_cents, currency, stock, created_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products
ORDER BY created_at DESC
`)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+productColumns+`
FROM products
WHERE id = $1
`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO products (sku, name, description, image_url, category, price_cents, currency, stock)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    image_url = EXCLUDED.image_url,
    category = EXCLUDED.category,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    stock = EXCLUDED.stock
RETURNING `+productColumns+`
`, p.SKU, p.Name, p.Description, p.ImageURL, p.Category, p.PriceCents, p.Currency, p.Stock)
	return scanProduct(row)
}

func (r *postgresRepo) DecrementStock(ctx context.Context, id string, qty int) error {
	return DecrementStock(ctx, r.pool, id, qty)
}

func (r *postgresRepo) RestoreStock(ctx context.Context, id string, qty int) error {
	return RestoreStock(ctx, r.pool, id, qty)
}

// DecrementStock is the authoritative oversell guard: the WHERE predicate and
// the update run as one statement, so two concurrent checkouts can never both
// pass a stale stock check. Pass a pgx.Tx to make the decrement part of a
// larger atomic operation.
func DecrementStock(ctx context.Context, q Querier, id string, qty int) error {
	cmd, err := q.Exec(ctx, `
UPDATE products
SET stock = stock - $2
WHERE id = $1 AND stock >= $2
`, id, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// RestoreStock adds qty back to a product's counter. It reports
// domain.ErrNotFound when the product no longer exists.
func RestoreStock(ctx context.Context, q Querier, id string, qty int) error {
	cmd, err := q.Exec(ctx, `
UPDATE products
SET stock = stock + $2
WHERE id = $1
`, id, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.ImageURL, &p.Category, &p.PriceCents, &p.Currency, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
