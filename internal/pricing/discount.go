package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountKind names the source of a checkout discount.
type DiscountKind string

const (
	DiscountNone      DiscountKind = "none"
	DiscountCoupon    DiscountKind = "coupon"
	DiscountAbandoned DiscountKind = "abandoned_cart"
)

// Discount holds at most one active discount. Applying a coupon replaces
// an abandoned-cart discount and vice versa.
type Discount struct {
	kind    DiscountKind
	code    string
	percent decimal.Decimal
	amount  decimal.Decimal
}

// NoDiscount is the zero discount.
func NoDiscount() Discount {
	return Discount{kind: DiscountNone}
}

// CouponDiscount is a percentage of the subtotal.
func CouponDiscount(code string, percent decimal.Decimal) Discount {
	return Discount{kind: DiscountCoupon, code: strings.TrimSpace(code), percent: clampPercent(percent)}
}

// AbandonedDiscount is a fixed amount computed from abandoned-cart offers.
func AbandonedDiscount(amount decimal.Decimal) Discount {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Discount{kind: DiscountAbandoned, amount: amount}
}

// WithCoupon returns a discount that uses the coupon and drops any
// abandoned-cart discount.
func (d Discount) WithCoupon(code string, percent decimal.Decimal) Discount {
	return CouponDiscount(code, percent)
}

// WithAbandoned returns a discount that uses the abandoned-cart amount and
// drops any coupon.
func (d Discount) WithAbandoned(amount decimal.Decimal) Discount {
	return AbandonedDiscount(amount)
}

func (d Discount) Kind() DiscountKind {
	if d.kind == "" {
		return DiscountNone
	}
	return d.kind
}

// Code is the coupon code, empty unless Kind is DiscountCoupon.
func (d Discount) Code() string { return d.code }

func (d Discount) Percent() decimal.Decimal { return d.percent }

// amountFor returns the discount against subtotal.
func (d Discount) amountFor(subtotal decimal.Decimal) decimal.Decimal {
	switch d.Kind() {
	case DiscountCoupon:
		return subtotal.Mul(d.percent).Div(hundred)
	case DiscountAbandoned:
		return d.amount
	default:
		return decimal.Zero
	}
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
