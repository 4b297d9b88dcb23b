package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id::text, user_id, total_items, total_cents, created_at, updated_at
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalItems,
		&cart.TotalCents,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		return nil, err
	}

	const itemsQuery = `
SELECT id::text, cart_id::text, product_id::text, product_name, COALESCE(image_url, ''), category, quantity, unit_price_cents, total_cents, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.ProductName,
			&item.ImageURL,
			&item.Category,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.TotalCents,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID string, p domain.Product, qty int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lineID string
	var existingQty int
	err = tx.QueryRow(ctx, `
SELECT id::text, quantity
FROM cart_items
WHERE cart_id = $1 AND product_id = $2
`, cartID, p.ID).Scan(&lineID, &existingQty)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err == nil {
		newQty := existingQty + qty
		if _, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $1,
    product_name = $2,
    image_url = $3,
    category = $4,
    unit_price_cents = $5,
    total_cents = $5 * $1
WHERE id = $6
`, newQty, p.Name, p.ImageURL, p.Category, p.PriceCents, lineID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, product_name, image_url, category, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7 * $6)
`, cartID, p.ID, p.Name, p.ImageURL, p.Category, qty, p.PriceCents); err != nil {
			return err
		}
	}

	if err := recomputeCartTotals(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) SetItemQuantity(ctx context.Context, cartID string, p domain.Product, qty int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $1,
    product_name = $2,
    image_url = $3,
    category = $4,
    unit_price_cents = $5,
    total_cents = $5 * $1
WHERE cart_id = $6 AND product_id = $7
`, qty, p.Name, p.ImageURL, p.Category, p.PriceCents, cartID, p.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := recomputeCartTotals(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1 AND product_id = $2
`, cartID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := recomputeCartTotals(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := recomputeCartTotals(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// recomputeCartTotals derives total_items/total_cents from the lines inside
// the same transaction as the mutation, so the invariant holds at commit.
func recomputeCartTotals(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET total_items = COALESCE((
        SELECT SUM(quantity) FROM cart_items WHERE cart_id = $1
    ), 0),
    total_cents = COALESCE((
        SELECT SUM(total_cents) FROM cart_items WHERE cart_id = $1
    ), 0),
    updated_at = now()
WHERE id = $1
`, cartID)
	return err
}
