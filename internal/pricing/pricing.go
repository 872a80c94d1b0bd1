// Package pricing computes checkout totals. It is pure: no I/O, no clocks.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// DefaultTaxType is reported when the shipping quote names no tax type.
const DefaultTaxType = "N/A"

var hundred = decimal.NewFromInt(100)

// Input is everything the calculator needs.
type Input struct {
	Items         []domain.LineItem
	ShippingRate  decimal.Decimal
	TaxPercentage decimal.Decimal
	TaxType       string
	Discount      Discount
}

// Breakdown is the priced checkout, every amount rounded to two places.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingRate   decimal.Decimal `json:"shippingRate"`
	DiscountKind   DiscountKind    `json:"discountType"`
	CouponCode     string          `json:"couponCode,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxableAmount  decimal.Decimal `json:"taxableAmount"`
	TaxPercentage  decimal.Decimal `json:"taxPercentage"`
	TaxType        string          `json:"taxType"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
}

// Calculate prices a checkout:
//
//	subtotal = sum(qty * unit selling price)
//	taxable  = subtotal + shipping - discount
//	tax      = taxable * taxPercentage / 100
//	total    = max(0, taxable + tax)
//
// The taxable amount may go negative when the discount outweighs subtotal
// plus shipping; only the total is floored.
func Calculate(in Input) Breakdown {
	subtotal := decimal.Zero
	for _, it := range in.Items {
		if it.Quantity < 1 {
			continue
		}
		subtotal = subtotal.Add(it.LineTotal())
	}

	shipping := nonNegative(in.ShippingRate)
	taxPct := nonNegative(in.TaxPercentage)
	discount := in.Discount.amountFor(subtotal)

	taxable := subtotal.Add(shipping).Sub(discount)
	tax := taxable.Mul(taxPct).Div(hundred)
	total := taxable.Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	taxType := strings.TrimSpace(in.TaxType)
	if taxType == "" {
		taxType = DefaultTaxType
	}

	return Breakdown{
		Subtotal:       round(subtotal),
		ShippingRate:   round(shipping),
		DiscountKind:   in.Discount.Kind(),
		CouponCode:     in.Discount.Code(),
		DiscountAmount: round(discount),
		TaxableAmount:  round(taxable),
		TaxPercentage:  taxPct,
		TaxType:        taxType,
		TaxAmount:      round(tax),
		Total:          round(total),
	}
}

// AbandonedDiscountAmount sums, over lines matching an offer's product and
// variant, unit selling price * percent / 100 * quantity.
func AbandonedDiscountAmount(items []domain.LineItem, offers []domain.AbandonedOffer) decimal.Decimal {
	if len(offers) == 0 {
		return decimal.Zero
	}
	byKey := make(map[domain.ItemKey]decimal.Decimal, len(offers))
	for _, o := range offers {
		byKey[o.Key()] = clampPercent(o.Percent)
	}

	total := decimal.Zero
	for _, it := range items {
		pct, ok := byKey[it.Key()]
		if !ok || it.Quantity < 1 {
			continue
		}
		perUnit := it.UnitSellingPrice.Mul(pct).Div(hundred)
		total = total.Add(perUnit.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return round(total)
}

// TotalMinorUnits is the total in the currency's minor unit (paise, cents)
// as payment gateways expect it.
func (b Breakdown) TotalMinorUnits() int64 {
	return b.Total.Mul(hundred).Round(0).IntPart()
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
