package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

func (h *handlers) session(c *gin.Context) *cartsvc.Service {
	return h.deps.CartSessions.Get(c.GetString(ctxBearer))
}

// respondCart writes the cart or the error. An expired session is also
// dropped from the session cache.
func (h *handlers) respondCart(c *gin.Context, cart domain.Cart, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			h.deps.CartSessions.Forget(c.GetString(ctxBearer))
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) meCart(c *gin.Context) {
	cart, err := h.session(c).Fetch(c.Request.Context())
	h.respondCart(c, cart, err)
}

func (h *handlers) meAdd(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	item, qty := req.lineItem()
	svc := h.session(c)
	if _, err := svc.EnsureLoaded(c.Request.Context()); err != nil {
		h.respondCart(c, domain.Cart{}, err)
		return
	}
	cart, err := svc.Add(c.Request.Context(), item, qty)
	h.respondCart(c, cart, err)
}

func (h *handlers) meRemove(c *gin.Context) {
	h.meLineOp(c, (*cartsvc.Service).Remove)
}

func (h *handlers) meIncrement(c *gin.Context) {
	h.meLineOp(c, (*cartsvc.Service).Increment)
}

func (h *handlers) meDecrement(c *gin.Context) {
	h.meLineOp(c, (*cartsvc.Service).Decrement)
}

func (h *handlers) meLineOp(c *gin.Context, op func(*cartsvc.Service, context.Context, int64) (domain.Cart, error)) {
	id, ok := lineItemParam(c)
	if !ok {
		return
	}
	svc := h.session(c)
	if _, err := svc.EnsureLoaded(c.Request.Context()); err != nil {
		h.respondCart(c, domain.Cart{}, err)
		return
	}
	cart, err := op(svc, c.Request.Context(), id)
	h.respondCart(c, cart, err)
}

func (h *handlers) meClear(c *gin.Context) {
	cart, err := h.session(c).Clear(c.Request.Context())
	h.respondCart(c, cart, err)
}

type mergeResponse struct {
	Cart       cartResponse       `json:"cart"`
	Merged     []lineItemResponse `json:"merged"`
	Skipped    []lineItemResponse `json:"skipped"`
	GuestItems int                `json:"guestItemsRemaining"`
}

// meMerge folds the guest cart named by X-Guest-Token into the account
// cart. The guest session is revoked once nothing is left in it.
func (h *handlers) meMerge(c *gin.Context) {
	ctx := c.Request.Context()
	guest := h.guestStore(c)
	if err := guest.Refresh(ctx); err != nil {
		h.writeError(c, err)
		return
	}
	svc := h.session(c)

	report, err := svc.MergeGuest(ctx, guest)
	if err != nil {
		h.respondCart(c, domain.Cart{}, err)
		return
	}

	remaining := len(guest.Items())
	if remaining == 0 {
		h.deps.GuestSessions.Revoke(ctx, c.GetString(ctxGuestToken))
	}
	c.JSON(http.StatusOK, mergeResponse{
		Cart:       toCartResponse(svc.Cart()),
		Merged:     toLineItemResponses(report.Merged),
		Skipped:    toLineItemResponses(report.Skipped),
		GuestItems: remaining,
	})
}

func toLineItemResponses(items []domain.LineItem) []lineItemResponse {
	out := make([]lineItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toLineItemResponse(it))
	}
	return out
}
