package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

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

const orderColumns = `id::text, number, user_id, payment_intent_id, payment_method, payment_status, order_status,
subtotal_cents, shipping_cents, tax_cents, discount_cents, total_cents, currency, coupon_code,
ship_full_name, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country, ship_phone,
tracking_number, notes, created_at, updated_at`

type lineSnapshot struct {
	name     string
	imageURL string
	category string
}

func (r *postgresRepo) CreatePaid(ctx context.Context, in CreateOrderInput) (*domain.Order, bool, error) {
	// Fast path for duplicate triggers: both the client confirmation and the
	// gateway webhook may attempt materialization for the same intent.
	existing, err := r.GetByPaymentIntent(ctx, in.PaymentIntentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	// Decrement stock first so an out-of-stock line aborts before anything is
	// written, then snapshot the catalog fields under the same row lock.
	snapshots := make([]lineSnapshot, len(in.Lines))
	for i, line := range in.Lines {
		if err := productrepo.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, false, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		var snap lineSnapshot
		err := tx.QueryRow(ctx, `
SELECT name, COALESCE(image_url, ''), category
FROM products
WHERE id = $1
`, line.ProductID).Scan(&snap.name, &snap.imageURL, &snap.category)
		if err != nil {
			return nil, false, err
		}
		snapshots[i] = snap
	}

	order := domain.Order{
		Number:          newOrderNumber(),
		UserID:          in.UserID,
		PaymentIntentID: &in.PaymentIntentID,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   domain.PaymentStatusCompleted,
		OrderStatus:     domain.OrderStatusPending,
		SubtotalCents:   in.SubtotalCents,
		ShippingCents:   in.ShippingCents,
		TaxCents:        in.TaxCents,
		DiscountCents:   in.DiscountCents,
		TotalCents:      in.TotalCents,
		Currency:        in.Currency,
		CouponCode:      in.CouponCode,
		Address:         in.Address,
	}

	err = tx.QueryRow(ctx, `
INSERT INTO orders (number, user_id, payment_intent_id, payment_method, payment_status, order_status,
    subtotal_cents, shipping_cents, tax_cents, discount_cents, total_cents, currency, coupon_code,
    ship_full_name, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country, ship_phone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (payment_intent_id) WHERE payment_intent_id IS NOT NULL DO NOTHING
RETURNING id::text, created_at, updated_at
`,
		order.Number, order.UserID, in.PaymentIntentID, order.PaymentMethod, order.PaymentStatus, order.OrderStatus,
		order.SubtotalCents, order.ShippingCents, order.TaxCents, order.DiscountCents, order.TotalCents, order.Currency, order.CouponCode,
		in.Address.FullName, in.Address.Line1, in.Address.Line2, in.Address.City, in.Address.State, in.Address.PostalCode, in.Address.Country, in.Address.Phone,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race to a concurrent trigger. Roll back our stock
			// decrements and hand back the winner's order.
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				return nil, false, rbErr
			}
			winner, getErr := r.GetByPaymentIntent(ctx, in.PaymentIntentID)
			if getErr != nil {
				return nil, false, getErr
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	for i, line := range in.Lines {
		snap := snapshots[i]
		var item domain.OrderItem
		err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, name, image_url, category, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7 * $6)
RETURNING id::text
`, order.ID, line.ProductID, snap.name, snap.imageURL, snap.category, line.Quantity, line.UnitPriceCents).Scan(&item.ID)
		if err != nil {
			return nil, false, err
		}
		item.OrderID = order.ID
		item.ProductID = line.ProductID
		item.Name = snap.name
		item.ImageURL = snap.imageURL
		item.Category = snap.category
		item.Quantity = line.Quantity
		item.UnitPriceCents = line.UnitPriceCents
		item.TotalCents = line.UnitPriceCents * int64(line.Quantity)
		order.Items = append(order.Items, item)
	}

	if in.CouponCode != nil {
		cmd, err := tx.Exec(ctx, `
UPDATE coupons
SET used_count = used_count + 1,
    updated_at = now()
WHERE code = $1
  AND is_active
  AND (usage_limit IS NULL OR used_count < usage_limit)
`, strings.ToUpper(*in.CouponCode))
		if err != nil {
			return nil, false, err
		}
		if cmd.RowsAffected() == 0 {
			return nil, false, fmt.Errorf("coupon %s no longer redeemable: %w", *in.CouponCode, domain.ErrConflict)
		}
	}

	// A completed checkout removes the cart outright; the next read lazily
	// recreates an empty one.
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, in.UserID); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

func (r *postgresRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE payment_intent_id = $1
`, intentID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE id = $1
`, id)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string, f ListFilter) ([]domain.Order, int64, error) {
	f.UserID = userID
	f.Search = ""
	f.PaymentStatus = ""
	return r.List(ctx, f)
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Order, int64, error) {
	where := []string{"TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != "" {
		where = append(where, "user_id = "+arg(f.UserID))
	}
	if f.Status != "" {
		where = append(where, "order_status = "+arg(f.Status))
	}
	if f.PaymentStatus != "" {
		where = append(where, "payment_status = "+arg(f.PaymentStatus))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(number ILIKE "+p+" OR id::text ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	q := `
SELECT ` + orderColumns + `
FROM orders
WHERE ` + cond + `
ORDER BY created_at DESC
LIMIT ` + arg(size) + ` OFFSET ` + arg((page-1)*size)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		items, err := r.fetchItems(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}
	return orders, total, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id, status string, tracking, notes *string) (*domain.Order, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET order_status = $2,
    tracking_number = COALESCE($3, tracking_number),
    notes = COALESCE($4, notes),
    updated_at = now()
WHERE id = $1 AND order_status NOT IN ('delivered', 'cancelled')
`, id, status, tracking, notes)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %s is terminal: %w", id, domain.ErrConflict)
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT order_status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !domain.Cancellable(status) {
		return nil, fmt.Errorf("order is %s: %w", status, domain.ErrConflict)
	}

	rows, err := tx.Query(ctx, `SELECT product_id::text, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	type restore struct {
		productID string
		quantity  int
	}
	var restores []restore
	for rows.Next() {
		var rst restore
		if err := rows.Scan(&rst.productID, &rst.quantity); err != nil {
			rows.Close()
			return nil, err
		}
		restores = append(restores, rst)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Restore exactly what materialization decremented. A product deleted from
	// the catalog since then has no counter left to restore.
	for _, rst := range restores {
		if err := productrepo.RestoreStock(ctx, tx, rst.productID, rst.quantity); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
UPDATE orders
SET order_status = 'cancelled',
    payment_status = 'refunded',
    updated_at = now()
WHERE id = $1
`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, args ...interface{}) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	items, err := r.fetchItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *postgresRepo) fetchItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, product_id::text, name, COALESCE(image_url, ''), category, quantity, unit_price_cents, total_cents
FROM order_items
WHERE order_id = $1
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.ImageURL,
			&item.Category,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.TotalCents,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.Number,
		&o.UserID,
		&o.PaymentIntentID,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.OrderStatus,
		&o.SubtotalCents,
		&o.ShippingCents,
		&o.TaxCents,
		&o.DiscountCents,
		&o.TotalCents,
		&o.Currency,
		&o.CouponCode,
		&o.Address.FullName,
		&o.Address.Line1,
		&o.Address.Line2,
		&o.Address.City,
		&o.Address.State,
		&o.Address.PostalCode,
		&o.Address.Country,
		&o.Address.Phone,
		&o.TrackingNumber,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
