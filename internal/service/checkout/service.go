// Package checkout prices a cart for delivery to a pincode and submits
// orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/pricing"
)

var (
	// ErrInvalidPincode rejects anything but six digits.
	ErrInvalidPincode = errors.New("pincode must be 6 digits")
	// ErrNotServiceable means the backend does not deliver to the pincode.
	ErrNotServiceable = errors.New("pincode not serviceable")
	// ErrAddressRequired rejects orders without a delivery address.
	ErrAddressRequired = errors.New("address id required")
	// ErrInvalidPaymentMethod rejects unknown payment methods.
	ErrInvalidPaymentMethod = errors.New("payment method must be cod or online")
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

type backendAPI interface {
	VerifyPincode(ctx context.Context, pincode string) (domain.ShippingQuote, error)
	ValidateCoupon(ctx context.Context, token, code string) (domain.Coupon, error)
	PlaceOrder(ctx context.Context, token string, order backend.OrderPayload) (domain.PlacedOrder, error)
}

// Service quotes, previews and places orders.
type Service struct {
	api      backendAPI
	quotes   *lru.Cache
	currency string
	newKey   func() string
	logger   *zap.Logger
}

// New builds a Service caching up to cacheSize serviceable quotes.
func New(api backendAPI, cacheSize int, currency string, logger *zap.Logger) (*Service, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("pincode cache: %w", err)
	}
	if strings.TrimSpace(currency) == "" {
		currency = "INR"
	}
	return &Service{
		api:      api,
		quotes:   cache,
		currency: strings.ToUpper(strings.TrimSpace(currency)),
		newKey:   func() string { return uuid.NewString() },
		logger:   logging.OrNop(logger).Named("checkout"),
	}, nil
}

// Quote returns shipping and tax rates for a pincode.
func (s *Service) Quote(ctx context.Context, pincode string) (domain.ShippingQuote, error) {
	pincode = strings.TrimSpace(pincode)
	if !pincodePattern.MatchString(pincode) {
		return domain.ShippingQuote{}, ErrInvalidPincode
	}
	if v, ok := s.quotes.Get(pincode); ok {
		return v.(domain.ShippingQuote), nil
	}

	q, err := s.api.VerifyPincode(ctx, pincode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ShippingQuote{}, ErrNotServiceable
		}
		return domain.ShippingQuote{}, err
	}
	if !q.Serviceable {
		return domain.ShippingQuote{}, ErrNotServiceable
	}
	s.quotes.Add(pincode, q)
	return q, nil
}

// PreviewRequest selects the delivery pincode and discount for a preview.
type PreviewRequest struct {
	Pincode              string `json:"pincode"`
	CouponCode           string `json:"couponCode,omitempty"`
	UseAbandonedDiscount bool   `json:"useAbandonedDiscount,omitempty"`
}

// Preview is the priced cart.
type Preview struct {
	Quote     domain.ShippingQuote `json:"quote"`
	Breakdown pricing.Breakdown    `json:"breakdown"`
	Items     []domain.LineItem    `json:"items"`
}

// Preview prices cart for the request. When both a coupon and the
// abandoned-cart discount are asked for, the coupon wins.
func (s *Service) Preview(ctx context.Context, token string, cart domain.Cart, req PreviewRequest) (Preview, error) {
	quote, err := s.Quote(ctx, req.Pincode)
	if err != nil {
		return Preview{}, err
	}
	discount, err := s.discount(ctx, token, cart, req.CouponCode, req.UseAbandonedDiscount)
	if err != nil {
		return Preview{}, err
	}
	b := pricing.Calculate(pricing.Input{
		Items:         cart.Items,
		ShippingRate:  quote.ShippingRate,
		TaxPercentage: quote.TaxPercentage,
		TaxType:       quote.TaxType,
		Discount:      discount,
	})
	return Preview{Quote: quote, Breakdown: b, Items: domain.CloneItems(cart.Items)}, nil
}

func (s *Service) discount(ctx context.Context, token string, cart domain.Cart, code string, useAbandoned bool) (pricing.Discount, error) {
	d := pricing.NoDiscount()
	if useAbandoned && cart.AbandonedDiscount.GreaterThan(decimal.Zero) {
		d = d.WithAbandoned(cart.AbandonedDiscount)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return d, nil
	}
	coupon, err := s.api.ValidateCoupon(ctx, token, code)
	if err != nil {
		return pricing.Discount{}, err
	}
	return d.WithCoupon(coupon.Code, coupon.Percent), nil
}

// OrderRequest is what the shopper submits at checkout.
type OrderRequest struct {
	AddressID            string               `json:"addressId"`
	PaymentMethod        domain.PaymentMethod `json:"paymentMethod"`
	Pincode              string               `json:"pincode"`
	CouponCode           string               `json:"couponCode,omitempty"`
	UseAbandonedDiscount bool                 `json:"useAbandonedDiscount,omitempty"`
}

// PaymentRequest is handed to the payment gateway for online orders.
type PaymentRequest struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	AmountMinor    int64  `json:"amountMinor"`
	Currency       string `json:"currency"`
}

// OrderResult is a placed order.
type OrderResult struct {
	OrderID        string            `json:"orderId"`
	Status         string            `json:"status,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey"`
	Breakdown      pricing.Breakdown `json:"breakdown"`
	Payment        *PaymentRequest   `json:"payment,omitempty"`
}

// PlaceOrder prices cart and submits it.
func (s *Service) PlaceOrder(ctx context.Context, token string, cart domain.Cart, req OrderRequest) (OrderResult, error) {
	if len(cart.Items) == 0 {
		return OrderResult{}, domain.ErrEmptyCart
	}
	if strings.TrimSpace(req.AddressID) == "" {
		return OrderResult{}, ErrAddressRequired
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCOD
	}
	if !req.PaymentMethod.Valid() {
		return OrderResult{}, ErrInvalidPaymentMethod
	}

	preview, err := s.Preview(ctx, token, cart, PreviewRequest{
		Pincode:              req.Pincode,
		CouponCode:           req.CouponCode,
		UseAbandonedDiscount: req.UseAbandonedDiscount,
	})
	if err != nil {
		return OrderResult{}, err
	}
	b := preview.Breakdown

	key := s.newKey()
	payload := backend.OrderPayload{
		Items:          orderLines(cart.Items),
		AddressID:      strings.TrimSpace(req.AddressID),
		Pincode:        preview.Quote.Pincode,
		Subtotal:       b.Subtotal,
		ShippingRate:   b.ShippingRate,
		TaxPercentage:  b.TaxPercentage,
		TaxType:        b.TaxType,
		TaxAmount:      b.TaxAmount,
		CouponCode:     b.CouponCode,
		DiscountAmount: b.DiscountAmount,
		Total:          b.Total,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: key,
	}
	placed, err := s.api.PlaceOrder(ctx, token, payload)
	if err != nil {
		s.logger.Warn("order submission failed", zap.String("idempotency_key", key), zap.Error(err))
		return OrderResult{}, err
	}
	s.logger.Info("order placed",
		zap.String("order_id", placed.OrderID),
		zap.String("payment_method", string(req.PaymentMethod)),
		zap.String("total", b.Total.StringFixed(2)),
	)

	result := OrderResult{
		OrderID:        placed.OrderID,
		Status:         placed.Status,
		IdempotencyKey: key,
		Breakdown:      b,
	}
	if req.PaymentMethod == domain.PaymentOnline {
		gatewayID := placed.GatewayOrderID
		if gatewayID == "" {
			gatewayID = placed.OrderID
		}
		result.Payment = &PaymentRequest{
			GatewayOrderID: gatewayID,
			AmountMinor:    b.TotalMinorUnits(),
			Currency:       s.currency,
		}
	}
	return result, nil
}

func orderLines(items []domain.LineItem) []backend.OrderLine {
	lines := make([]backend.OrderLine, 0, len(items))
	for _, it := range items {
		line := backend.OrderLine{
			LineItemID: it.LineItemID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitSellingPrice,
		}
		if it.VariantID != nil {
			v := *it.VariantID
			line.VariantID = &v
		}
		lines = append(lines, line)
	}
	return lines
}
