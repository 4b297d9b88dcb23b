package domain

import "time"

// Quantity bounds enforced on every cart mutation.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 100
)

// Cart is owned by exactly one user. TotalItems and TotalCents are derived
// sums over the items and are recomputed on every mutation, never set
// independently.
type Cart struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	TotalItems int        `json:"totalItems"`
	TotalCents int64      `json:"totalCents"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Items      []CartItem `json:"items"`
}

// CartItem snapshots the product price at the time of the last add/update.
type CartItem struct {
	ID             string    `json:"id"`
	CartID         string    `json:"cartId"`
	ProductID      string    `json:"productId"`
	ProductName    string    `json:"productName"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Category       string    `json:"category"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	TotalCents     int64     `json:"totalCents"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Categories returns the distinct product categories present in the cart.
func (c *Cart) Categories() []string {
	seen := make(map[string]struct{}, len(c.Items))
	var out []string
	for _, item := range c.Items {
		if item.Category == "" {
			continue
		}
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	return out
}
