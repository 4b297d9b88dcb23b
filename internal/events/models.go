package events

import "time"

type OrderCreatedRecord struct {
	SchemaVersion int       `json:"schema_version"`
	OrderID       string    `json:"order_id"`
	Number        string    `json:"number"`
	UserID        string    `json:"user_id"`
	TotalCents    int64     `json:"total_cents"`
	DiscountCents int64     `json:"discount_cents"`
	Currency      string    `json:"currency"`
	ItemCount     int       `json:"item_count"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type OrderStatusRecord struct {
	SchemaVersion int       `json:"schema_version"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	PaymentStatus string    `json:"payment_status"`
	ChangedAt     time.Time `json:"changed_at"`
}

type CouponAppliedRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Code          string    `json:"code"`
	OrderID       string    `json:"order_id"`
	DiscountCents int64     `json:"discount_cents"`
	AppliedAt     time.Time `json:"applied_at"`
}
