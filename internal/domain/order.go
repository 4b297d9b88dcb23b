package domain

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is created exactly once per successful payment intent and never
// deleted. Line items are price snapshots, not live product references.
type Order struct {
	ID              string      `json:"id"`
	Number          string      `json:"number"`
	UserID          string      `json:"userId"`
	PaymentIntentID *string     `json:"paymentIntentId,omitempty"`
	PaymentMethod   string      `json:"paymentMethod"`
	PaymentStatus   string      `json:"paymentStatus"`
	OrderStatus     string      `json:"orderStatus"`
	SubtotalCents   int64       `json:"subtotalCents"`
	ShippingCents   int64       `json:"shippingCents"`
	TaxCents        int64       `json:"taxCents"`
	DiscountCents   int64       `json:"discountCents"`
	TotalCents      int64       `json:"totalCents"`
	Currency        string      `json:"currency"`
	CouponCode      *string     `json:"couponCode,omitempty"`
	Address         Address     `json:"shippingAddress"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl,omitempty"`
	Category       string `json:"category"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// orderTransitions lists the forward fulfillment transitions. Cancellation is
// handled separately because it compensates stock.
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusShipped},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one fulfillment status
// to another. Delivered and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in the given status may be cancelled.
func Cancellable(status string) bool {
	return status != OrderStatusDelivered && status != OrderStatusCancelled
}
