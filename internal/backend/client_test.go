package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   string
	header http.Header
}

func newTestClient(t *testing.T, status int, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.body = string(body)
		rec.header = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Timeout: time.Second})
	require.NoError(t, err)
	return c, rec
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestCartEndpoints(t *testing.T) {
	ctx := context.Background()
	variant := int64(9)

	cases := []struct {
		name   string
		call   func(c *Client) error
		method string
		path   string
		body   string
	}{
		{"get", func(c *Client) error { _, err := c.GetCart(ctx, "tok"); return err }, http.MethodGet, "/cart", ""},
		{"add product", func(c *Client) error {
			return c.AddItem(ctx, "tok", NewAddItemRequest(domain.LineItem{ProductID: 4}, 2))
		}, http.MethodPost, "/cart/add", `{"product_id":4,"quantity":2}`},
		{"add variant", func(c *Client) error {
			return c.AddItem(ctx, "tok", NewAddItemRequest(domain.LineItem{ProductID: 4, VariantID: &variant}, 1))
		}, http.MethodPost, "/cart/add", `{"variant_id":9,"quantity":1}`},
		{"remove", func(c *Client) error { return c.RemoveItem(ctx, "tok", 31) }, http.MethodDelete, "/cart/remove/31", ""},
		{"update", func(c *Client) error { return c.UpdateQuantity(ctx, "tok", 31, 5) }, http.MethodPut, "/cart/update/31", `{"quantity":5}`},
		{"clear", func(c *Client) error { return c.ClearCart(ctx, "tok") }, http.MethodDelete, "/cart/clear", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestClient(t, http.StatusOK, `{}`)
			require.NoError(t, tc.call(c))
			assert.Equal(t, tc.method, rec.method)
			assert.Equal(t, tc.path, rec.path)
			assert.Equal(t, "Bearer tok", rec.auth)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.body)
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrSessionExpired},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusBadRequest, domain.ErrRejected},
		{http.StatusConflict, domain.ErrRejected},
		{http.StatusUnprocessableEntity, domain.ErrRejected},
		{http.StatusTooManyRequests, domain.ErrUpstream},
		{http.StatusInternalServerError, domain.ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c, _ := newTestClient(t, tc.status, `{"message":"nope"}`)
			err := c.ClearCart(context.Background(), "tok")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSessionExpiryIsBareSentinel(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnauthorized, `{}`)
	err := c.ClearCart(context.Background(), "tok")
	assert.Same(t, domain.ErrSessionExpired, err)
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnprocessableEntity, `{"error":{"message":"out of stock"}}`)
	err := c.AddItem(context.Background(), "tok", AddItemRequest{Quantity: 1})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "out of stock", Message(err))
}

func TestTransportFailureIsUpstream(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.GetCart(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestVerifyPincode(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"data":{"serviceable":true,"shipping_rate":"49.00","tax_percentage":18,"tax_type":"GST"}}`)
	q, err := c.VerifyPincode(context.Background(), "560001")
	require.NoError(t, err)

	assert.Equal(t, "/pincode/560001", rec.path)
	assert.Empty(t, rec.auth)
	assert.True(t, q.Serviceable)
	assert.True(t, q.ShippingRate.Equal(decimal.RequireFromString("49")))
	assert.True(t, q.TaxPercentage.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "GST", q.TaxType)
}

func TestValidateCoupon(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"data":{"valid":true,"code":"SAVE10","discount_percentage":10}}`)
	coupon, err := c.ValidateCoupon(context.Background(), "tok", "save10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"save10"}`, rec.body)
	assert.Equal(t, "SAVE10", coupon.Code)
	assert.True(t, coupon.Percent.Equal(decimal.NewFromInt(10)))

	c, _ = newTestClient(t, http.StatusOK, `{"data":{"valid":false,"message":"expired"}}`)
	_, err = c.ValidateCoupon(context.Background(), "tok", "OLD")
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, "expired", Message(err))
}

func TestAbandonedOffers(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"data":[
		{"product_id":1,"discount_percentage":10},
		{"product_id":"2","variant_id":5,"percent":"15.5"},
		{"variant_id":5},
		"junk"
	]}`)
	offers, err := c.AbandonedOffers(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Nil(t, offers[0].VariantID)
	require.NotNil(t, offers[1].VariantID)
	assert.Equal(t, int64(5), *offers[1].VariantID)
	assert.True(t, offers[1].Percent.Equal(decimal.RequireFromString("15.5")))
}

func TestAbandonedOffersMalformedBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"data":"unavailable"}`)
	offers, err := c.AbandonedOffers(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, Message(err), "malformed abandoned offers")
	assert.Nil(t, offers)

	c, _ = newTestClient(t, http.StatusOK, `[{"product_id":1},`)
	_, err = c.AbandonedOffers(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestAbandonedOffersEmptyBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, "")
	offers, err := c.AbandonedOffers(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestPlaceOrder(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"data":{"order_id":77,"razorpay_order_id":"order_abc","status":"pending"}}`)
	placed, err := c.PlaceOrder(context.Background(), "tok", OrderPayload{
		AddressID:      "addr-1",
		PaymentMethod:  domain.PaymentOnline,
		IdempotencyKey: "key-1",
		Total:          decimal.RequireFromString("10.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "77", placed.OrderID)
	assert.Equal(t, "order_abc", placed.GatewayOrderID)
	assert.Equal(t, "key-1", rec.header.Get("Idempotency-Key"))

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rec.body), &sent))
	assert.Equal(t, "addr-1", sent["address_id"])
	assert.Equal(t, "online", sent["payment_method"])
	assert.Equal(t, "10.5", sent["total_amount"])
}

func TestPlaceOrderWithoutIDIsUpstream(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"data":{}}`)
	_, err := c.PlaceOrder(context.Background(), "tok", OrderPayload{})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestCheckCredential(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})
		s, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}

	assert.ErrorIs(t, CheckCredential("", now), domain.ErrSessionExpired)
	assert.ErrorIs(t, CheckCredential("   ", now), domain.ErrSessionExpired)
	assert.ErrorIs(t, CheckCredential(sign(now.Add(-time.Minute)), now), domain.ErrSessionExpired)
	assert.NoError(t, CheckCredential(sign(now.Add(time.Hour)), now))
	assert.NoError(t, CheckCredential("opaque-session-token", now))
}
