package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/repository/product"
)

type couponSeed struct {
	Code          string
	DiscountType  string
	DiscountValue string
	MaxCents      *int64
	MinCents      *int64
	UsageLimit    *int
}

// Apply inserts basic seed data for manual testing. Products go through the
// catalog upsert, so re-running refreshes them in place; coupons are inserted
// with ON CONFLICT DO NOTHING to preserve accumulated usage counts.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []domain.Product{
		{SKU: "SKU-TEE-CLASSIC", Name: "Classic T-Shirt", Category: "apparel", PriceCents: 1999, Currency: "USD", Stock: 120},
		{SKU: "SKU-HOODIE-ZIP", Name: "Zip Hoodie", Category: "apparel", PriceCents: 4999, Currency: "USD", Stock: 60},
		{SKU: "SKU-MUG-LOGO", Name: "Logo Mug", Category: "homeware", PriceCents: 1299, Currency: "USD", Stock: 200},
		{SKU: "SKU-POSTER-CITY", Name: "City Poster", Category: "art", PriceCents: 2499, Currency: "USD", Stock: 35},
	}

	repo := product.NewPostgres(pool, nil)
	for _, p := range products {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
	}

	tenOff := int64(2000)
	limitOne := 1
	minOrder := int64(5000)
	coupons := []couponSeed{
		{Code: "SAVE10", DiscountType: "percentage", DiscountValue: "10"},
		{Code: "WELCOME20", DiscountType: "percentage", DiscountValue: "20", MaxCents: &tenOff, UsageLimit: &limitOne},
		{Code: "FIVER", DiscountType: "fixed", DiscountValue: "500", MinCents: &minOrder},
	}

	expiry := time.Now().AddDate(1, 0, 0)
	for _, c := range coupons {
		if _, err := pool.Exec(ctx, `
INSERT INTO coupons (code, discount_type, discount_value, minimum_order_cents, maximum_discount_cents, expires_at, usage_limit)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
ON CONFLICT (code) DO NOTHING
`, c.Code, c.DiscountType, c.DiscountValue, c.MinCents, c.MaxCents, expiry, c.UsageLimit); err != nil {
			return fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}

	return nil
}
