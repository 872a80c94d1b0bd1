package backend

import (
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// OrderLine is one cart line in an order submission.
type OrderLine struct {
	LineItemID int64           `json:"cart_item_id"`
	ProductID  int64           `json:"product_id"`
	VariantID  *int64          `json:"variant_id,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// OrderPayload is the body of POST /order.
type OrderPayload struct {
	Items          []OrderLine          `json:"items"`
	AddressID      string               `json:"address_id"`
	Pincode        string               `json:"pincode"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	ShippingRate   decimal.Decimal      `json:"shipping_rate"`
	TaxPercentage  decimal.Decimal      `json:"tax_percentage"`
	TaxType        string               `json:"tax_type"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	CouponCode     string               `json:"coupon_code,omitempty"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	Total          decimal.Decimal      `json:"total_amount"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	IdempotencyKey string               `json:"idempotency_key"`
}

// envelope returns the "data" member when the backend wraps its answer,
// otherwise the body itself.
func envelope(body []byte) []byte {
	if v, typ, _, err := jsonparser.Get(body, "data"); err == nil && (typ == jsonparser.Object || typ == jsonparser.Array) {
		return v
	}
	return body
}

func decodeQuote(pincode string, body []byte) domain.ShippingQuote {
	obj := envelope(body)
	q := domain.ShippingQuote{
		Pincode:       pincode,
		Serviceable:   boolAt(obj, true, "serviceable", "is_serviceable"),
		ShippingRate:  decimalAt(obj, "shipping_rate", "shippingRate", "shipping_charge"),
		TaxPercentage: decimalAt(obj, "tax_percentage", "taxPercentage", "tax_rate"),
		TaxType:       stringAt(obj, "tax_type", "taxType"),
	}
	return q
}

func decodeCoupon(code string, body []byte) (domain.Coupon, error) {
	obj := envelope(body)
	if !boolAt(obj, true, "valid", "is_valid") {
		msg := stringAt(obj, "message")
		if msg == "" {
			msg = errorMessage(body)
		}
		if msg == "" {
			msg = "coupon is not valid"
		}
		return domain.Coupon{}, &APIError{Status: 200, Message: msg, Err: domain.ErrRejected}
	}
	c := domain.Coupon{
		Code:    stringAt(obj, "code", "coupon_code"),
		Percent: decimalAt(obj, "discount_percentage", "percent", "discount"),
	}
	if c.Code == "" {
		c.Code = code
	}
	return c, nil
}

// decodeOffers reads the offer list. An empty body means no offers; a
// body without an offer array is an error.
func decodeOffers(body []byte) ([]domain.AbandonedOffer, error) {
	offers := []domain.AbandonedOffer{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return offers, nil
	}
	arr := envelope(body)
	if v, typ, _, err := jsonparser.Get(arr, "offers"); err == nil && typ == jsonparser.Array {
		arr = v
	}
	_, err := jsonparser.ArrayEach(arr, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		if typ != jsonparser.Object {
			return
		}
		pid, ok := intAt(value, "product_id", "productId")
		if !ok || pid <= 0 {
			return
		}
		offer := domain.AbandonedOffer{
			ProductID: pid,
			Percent:   decimalAt(value, "discount_percentage", "percent", "discount"),
		}
		if vid, ok := intAt(value, "variant_id", "variantId"); ok {
			offer.VariantID = &vid
		}
		offers = append(offers, offer)
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func decodePlacedOrder(body []byte) domain.PlacedOrder {
	obj := envelope(body)
	return domain.PlacedOrder{
		OrderID:        stringAt(obj, "order_id", "orderId", "id"),
		GatewayOrderID: stringAt(obj, "gateway_order_id", "razorpay_order_id", "payment_order_id"),
		Status:         stringAt(obj, "status"),
	}
}

// stringAt returns the first string or number found under keys.
func stringAt(obj []byte, keys ...string) string {
	for _, k := range keys {
		v, typ, _, err := jsonparser.Get(obj, k)
		if err != nil {
			continue
		}
		switch typ {
		case jsonparser.String:
			if s, err := jsonparser.ParseString(v); err == nil && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		case jsonparser.Number:
			return string(v)
		}
	}
	return ""
}

func intAt(obj []byte, keys ...string) (int64, bool) {
	s := stringAt(obj, keys...)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func decimalAt(obj []byte, keys ...string) decimal.Decimal {
	s := stringAt(obj, keys...)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func boolAt(obj []byte, def bool, keys ...string) bool {
	for _, k := range keys {
		if b, err := jsonparser.GetBoolean(obj, k); err == nil {
			return b
		}
	}
	return def
}
