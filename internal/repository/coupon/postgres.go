package coupon

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
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

const couponColumns = `id::text, code, COALESCE(description, ''), discount_type, discount_value::text, minimum_order_cents, maximum_discount_cents, expires_at, usage_limit, used_count, is_active, applicable_categories, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO coupons (code, description, discount_type, discount_value, minimum_order_cents, maximum_discount_cents, expires_at, usage_limit, is_active, applicable_categories)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+couponColumns+`
`, strings.ToUpper(c.Code), c.Description, c.DiscountType, c.DiscountValue, c.MinimumOrderCents, c.MaximumDiscountCents, c.ExpiresAt, c.UsageLimit, c.IsActive, categoriesArg(c.ApplicableCategories))
	created, err := scanCoupon(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+couponColumns+`
FROM coupons
WHERE code = $1
`, strings.ToUpper(code))
	return mapNoRows(scanCoupon(row))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+couponColumns+`
FROM coupons
WHERE id = $1
`, id)
	return mapNoRows(scanCoupon(row))
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+couponColumns+`
FROM coupons
ORDER BY created_at DESC
`)
	if err != nil {
		r.logger.Printf("coupon repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE coupons
SET description = $2,
    discount_type = $3,
    discount_value = $4,
    minimum_order_cents = $5,
    maximum_discount_cents = $6,
    expires_at = $7,
    usage_limit = $8,
    is_active = $9,
    applicable_categories = $10,
    updated_at = now()
WHERE id = $1
RETURNING `+couponColumns+`
`, c.ID, c.Description, c.DiscountType, c.DiscountValue, c.MinimumOrderCents, c.MaximumDiscountCents, c.ExpiresAt, c.UsageLimit, c.IsActive, categoriesArg(c.ApplicableCategories))
	return mapNoRows(scanCoupon(row))
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementUsage is the second contended counter in the system. The limit
// check and the increment run as a single statement, so two orders racing for
// the last redemption cannot both pass.
func (r *postgresRepo) IncrementUsage(ctx context.Context, code string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE coupons
SET used_count = used_count + 1,
    updated_at = now()
WHERE code = $1
  AND is_active
  AND (usage_limit IS NULL OR used_count < usage_limit)
`, strings.ToUpper(code))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`, strings.ToUpper(code)).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var c domain.Coupon
	var value string
	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.DiscountType,
		&value,
		&c.MinimumOrderCents,
		&c.MaximumDiscountCents,
		&c.ExpiresAt,
		&c.UsageLimit,
		&c.UsedCount,
		&c.IsActive,
		&c.ApplicableCategories,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	c.DiscountValue = parsed
	return &c, nil
}

func mapNoRows(c *domain.Coupon, err error) (*domain.Coupon, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// categoriesArg keeps the column NOT NULL friendly when no categories are set.
func categoriesArg(categories []string) []string {
	if categories == nil {
		return []string{}
	}
	return categories
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
