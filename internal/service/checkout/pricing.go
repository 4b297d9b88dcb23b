package checkout

// Pricing holds the storefront's shipping and tax rules. Shipping and tax
// are applied to the subtotal before the coupon discount is subtracted.
type Pricing struct {
	Currency                   string
	ShippingFlatCents          int64
	FreeShippingThresholdCents int64
	TaxRateBasisPoints         int64
}

// Totals is the cost breakdown for one checkout.
type Totals struct {
	SubtotalCents int64 `json:"subtotalCents"`
	ShippingCents int64 `json:"shippingCents"`
	TaxCents      int64 `json:"taxCents"`
	DiscountCents int64 `json:"discountCents"`
	TotalCents    int64 `json:"totalCents"`
}

// Quote derives the full breakdown from a subtotal and a discount.
func (p Pricing) Quote(subtotalCents, discountCents int64) Totals {
	shipping := p.ShippingFlatCents
	if p.FreeShippingThresholdCents > 0 && subtotalCents >= p.FreeShippingThresholdCents {
		shipping = 0
	}
	// Half-up rounding on the tax, in integer arithmetic.
	tax := (subtotalCents*p.TaxRateBasisPoints + 5000) / 10000
	if discountCents > subtotalCents {
		discountCents = subtotalCents
	}
	return Totals{
		SubtotalCents: subtotalCents,
		ShippingCents: shipping,
		TaxCents:      tax,
		DiscountCents: discountCents,
		TotalCents:    subtotalCents + shipping + tax - discountCents,
	}
}
