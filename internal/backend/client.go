// Package backend is the HTTP client for the commerce backend API that owns
// authenticated carts, orders, pincodes and coupons.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

const maxBodyBytes = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the commerce backend on behalf of a shopper.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logging.OrNop(cfg.Logger).Named("backend"),
	}, nil
}

// AddItemRequest adds a product, or a specific variant of it, to the
// server cart. Only one of ProductID and VariantID is sent.
type AddItemRequest struct {
	ProductID *int64 `json:"product_id,omitempty"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// NewAddItemRequest picks the variant id when present, else the product id.
func NewAddItemRequest(item domain.LineItem, qty int) AddItemRequest {
	if item.VariantID != nil {
		v := *item.VariantID
		return AddItemRequest{VariantID: &v, Quantity: qty}
	}
	p := item.ProductID
	return AddItemRequest{ProductID: &p, Quantity: qty}
}

// GetCart returns the raw cart response for the normalizer.
func (c *Client) GetCart(ctx context.Context, token string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/cart", token, nil)
}

func (c *Client) AddItem(ctx context.Context, token string, req AddItemRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/add", token, req)
	return err
}

func (c *Client) RemoveItem(ctx context.Context, token string, lineItemID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/remove/"+strconv.FormatInt(lineItemID, 10), token, nil)
	return err
}

func (c *Client) UpdateQuantity(ctx context.Context, token string, lineItemID int64, qty int) error {
	body := struct {
		Quantity int `json:"quantity"`
	}{qty}
	_, err := c.do(ctx, http.MethodPut, "/cart/update/"+strconv.FormatInt(lineItemID, 10), token, body)
	return err
}

func (c *Client) ClearCart(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/clear", token, nil)
	return err
}

// VerifyPincode asks the backend whether a pincode is deliverable and at
// what shipping and tax rates. It does not need a shopper token.
func (c *Client) VerifyPincode(ctx context.Context, pincode string) (domain.ShippingQuote, error) {
	body, err := c.do(ctx, http.MethodGet, "/pincode/"+url.PathEscape(pincode), "", nil)
	if err != nil {
		return domain.ShippingQuote{}, err
	}
	return decodeQuote(pincode, body), nil
}

// ValidateCoupon returns the coupon's percentage when the backend accepts
// the code. An invalid code is an *APIError wrapping domain.ErrRejected.
func (c *Client) ValidateCoupon(ctx context.Context, token, code string) (domain.Coupon, error) {
	req := struct {
		Code string `json:"code"`
	}{code}
	body, err := c.do(ctx, http.MethodPost, "/coupon/validate", token, req)
	if err != nil {
		return domain.Coupon{}, err
	}
	return decodeCoupon(code, body)
}

// AbandonedOffers lists per-product discounts for items the shopper left
// in the cart earlier.
func (c *Client) AbandonedOffers(ctx context.Context, token string) ([]domain.AbandonedOffer, error) {
	body, err := c.do(ctx, http.MethodGet, "/cart/abandoned-offers", token, nil)
	if err != nil {
		return nil, err
	}
	offers, err := decodeOffers(body)
	if err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: "malformed abandoned offers: " + err.Error(), Err: domain.ErrUpstream}
	}
	return offers, nil
}

// PlaceOrder submits a priced order.
func (c *Client) PlaceOrder(ctx context.Context, token string, order OrderPayload) (domain.PlacedOrder, error) {
	body, err := c.doWithHeaders(ctx, http.MethodPost, "/order", token, order, map[string]string{
		"Idempotency-Key": order.IdempotencyKey,
	})
	if err != nil {
		return domain.PlacedOrder{}, err
	}
	placed := decodePlacedOrder(body)
	if placed.OrderID == "" {
		return domain.PlacedOrder{}, &APIError{Status: http.StatusOK, Message: "order response has no order id", Err: domain.ErrUpstream}
	}
	return placed, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload interface{}) ([]byte, error) {
	return c.doWithHeaders(ctx, method, path, token, payload, nil)
}

func (c *Client) doWithHeaders(ctx context.Context, method, path, token string, payload interface{}, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(err)
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}
