package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/service/checkout"
)

func (h *handlers) pincodeQuote(c *gin.Context) {
	q, err := h.deps.Checkout.Quote(c.Request.Context(), c.Param("pincode"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *handlers) checkoutPreview(c *gin.Context) {
	var req checkout.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	token := c.GetString(ctxBearer)
	cart, err := h.deps.CartSessions.Get(token).Fetch(c.Request.Context())
	if err != nil {
		h.respondCart(c, domain.Cart{}, err)
		return
	}
	preview, err := h.deps.Checkout.Preview(c.Request.Context(), token, cart, req)
	if err != nil {
		h.checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *handlers) checkoutOrder(c *gin.Context) {
	var req checkout.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	token := c.GetString(ctxBearer)
	svc := h.deps.CartSessions.Get(token)
	cart, err := svc.Fetch(c.Request.Context())
	if err != nil {
		h.respondCart(c, domain.Cart{}, err)
		return
	}
	result, err := h.deps.Checkout.PlaceOrder(c.Request.Context(), token, cart, req)
	if err != nil {
		h.checkoutError(c, err)
		return
	}
	if _, err := svc.Fetch(c.Request.Context()); err != nil {
		h.logger.Info("cart refresh after order failed", zap.Error(err))
	}
	c.JSON(http.StatusCreated, result)
}

func (h *handlers) checkoutError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrSessionExpired) {
		h.deps.CartSessions.Forget(c.GetString(ctxBearer))
	}
	h.writeError(c, err)
}
