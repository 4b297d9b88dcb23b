package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

// Intent metadata keys. Enough checkout state is embedded at intent-creation
// time that the webhook path can materialize the order without a live cart.
const (
	metaUserID     = "user_id"
	metaItems      = "items"
	metaSubtotal   = "subtotal_cents"
	metaShipping   = "shipping_cents"
	metaTax        = "tax_cents"
	metaDiscount   = "discount_cents"
	metaTotal      = "total_cents"
	metaCouponCode = "coupon_code"
	metaAddress    = "address"
	metaMethod     = "payment_method"
)

type checkoutData struct {
	UserID        string
	Lines         []orderrepo.LineInput
	Totals        Totals
	CouponCode    *string
	Address       domain.Address
	PaymentMethod string
}

func encodeMetadata(d checkoutData) (map[string]string, error) {
	addr, err := json.Marshal(d.Address)
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(d.Lines))
	for i, line := range d.Lines {
		parts[i] = fmt.Sprintf("%s:%d:%d", line.ProductID, line.Quantity, line.UnitPriceCents)
	}

	m := map[string]string{
		metaUserID:   d.UserID,
		metaItems:    strings.Join(parts, "|"),
		metaSubtotal: strconv.FormatInt(d.Totals.SubtotalCents, 10),
		metaShipping: strconv.FormatInt(d.Totals.ShippingCents, 10),
		metaTax:      strconv.FormatInt(d.Totals.TaxCents, 10),
		metaDiscount: strconv.FormatInt(d.Totals.DiscountCents, 10),
		metaTotal:    strconv.FormatInt(d.Totals.TotalCents, 10),
		metaAddress:  string(addr),
		metaMethod:   d.PaymentMethod,
	}
	if d.CouponCode != nil {
		m[metaCouponCode] = *d.CouponCode
	}
	return m, nil
}

func decodeMetadata(m map[string]string) (*checkoutData, error) {
	if m == nil {
		return nil, errors.New("intent has no metadata")
	}
	d := checkoutData{
		UserID:        m[metaUserID],
		PaymentMethod: m[metaMethod],
	}
	if d.UserID == "" {
		return nil, errors.New("intent metadata missing user id")
	}
	if d.PaymentMethod == "" {
		d.PaymentMethod = "card"
	}

	for _, part := range strings.Split(m[metaItems], "|") {
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed item entry %q", part)
		}
		qty, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("malformed quantity in %q", part)
		}
		price, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed price in %q", part)
		}
		d.Lines = append(d.Lines, orderrepo.LineInput{
			ProductID:      fields[0],
			Quantity:       qty,
			UnitPriceCents: price,
		})
	}
	if len(d.Lines) == 0 {
		return nil, errors.New("intent metadata has no items")
	}

	for key, dst := range map[string]*int64{
		metaSubtotal: &d.Totals.SubtotalCents,
		metaShipping: &d.Totals.ShippingCents,
		metaTax:      &d.Totals.TaxCents,
		metaDiscount: &d.Totals.DiscountCents,
		metaTotal:    &d.Totals.TotalCents,
	} {
		n, err := strconv.ParseInt(m[key], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed %s: %w", key, err)
		}
		*dst = n
	}

	if code := m[metaCouponCode]; code != "" {
		d.CouponCode = &code
	}
	if raw := m[metaAddress]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &d.Address); err != nil {
			return nil, fmt.Errorf("malformed address: %w", err)
		}
	}
	return &d, nil
}
