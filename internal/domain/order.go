package domain

import "github.com/shopspring/decimal"

// PaymentMethod names how the shopper pays for an order.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

// ShippingQuote is the result of verifying a delivery pincode.
type ShippingQuote struct {
	Pincode       string          `json:"pincode"`
	Serviceable   bool            `json:"serviceable"`
	ShippingRate  decimal.Decimal `json:"shippingRate"`
	TaxPercentage decimal.Decimal `json:"taxPercentage"`
	TaxType       string          `json:"taxType"`
}

// Coupon is a validated percentage discount code.
type Coupon struct {
	Code    string          `json:"code"`
	Percent decimal.Decimal `json:"percent"`
}

// AbandonedOffer is a per-unit percentage discount for a product the
// customer previously left in their cart.
type AbandonedOffer struct {
	ProductID int64           `json:"productId"`
	VariantID *int64          `json:"variantId,omitempty"`
	Percent   decimal.Decimal `json:"percent"`
}

// Key returns the product/variant identity the offer applies to.
func (o AbandonedOffer) Key() ItemKey {
	return KeyOf(o.ProductID, o.VariantID)
}

// PlacedOrder is the backend's answer to an order submission.
type PlacedOrder struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId,omitempty"`
	Status         string `json:"status,omitempty"`
}
