package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Coupon codes are case-normalized to upper before storage and lookup.
// DiscountValue is a percentage for percentage coupons and an amount in
// cents for fixed coupons.
type Coupon struct {
	ID                   string          `json:"id"`
	Code                 string          `json:"code"`
	Description          string          `json:"description,omitempty"`
	DiscountType         string          `json:"discountType"`
	DiscountValue        decimal.Decimal `json:"discountValue"`
	MinimumOrderCents    *int64          `json:"minimumOrderCents,omitempty"`
	MaximumDiscountCents *int64          `json:"maximumDiscountCents,omitempty"`
	ExpiresAt            time.Time       `json:"expiresAt"`
	UsageLimit           *int            `json:"usageLimit,omitempty"`
	UsedCount            int             `json:"usedCount"`
	IsActive             bool            `json:"isActive"`
	ApplicableCategories []string        `json:"applicableCategories,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}
