package httpserver

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/guestcart"
)

const maxReplaceBody = 1 << 20

func (h *handlers) issueGuestSession(c *gin.Context) {
	sess, err := h.deps.GuestSessions.Issue(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *handlers) guestStore(c *gin.Context) *guestcart.Store {
	return h.deps.GuestCarts.Get(c.Request.Context(), c.GetString(ctxGuestID))
}

func (h *handlers) guestCart(c *gin.Context) {
	store := h.guestStore(c)
	if err := store.Refresh(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.Cart()))
}

func (h *handlers) guestAdd(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	item, qty := req.lineItem()
	store := h.guestStore(c)
	if _, err := store.Add(c.Request.Context(), item, qty); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.Cart()))
}

func (h *handlers) guestRemove(c *gin.Context) {
	h.guestLineOp(c, (*guestcart.Store).Remove)
}

func (h *handlers) guestIncrement(c *gin.Context) {
	h.guestLineOp(c, (*guestcart.Store).Increment)
}

func (h *handlers) guestDecrement(c *gin.Context) {
	h.guestLineOp(c, (*guestcart.Store).Decrement)
}

func (h *handlers) guestLineOp(c *gin.Context, op func(*guestcart.Store, context.Context, int64) error) {
	id, ok := lineItemParam(c)
	if !ok {
		return
	}
	store := h.guestStore(c)
	if err := op(store, c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.Cart()))
}

// guestReplace overwrites the guest cart with a JSON array of lines. A
// body that is not an array empties the cart.
func (h *handlers) guestReplace(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReplaceBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	store := h.guestStore(c)
	if err := store.ReplaceJSON(c.Request.Context(), raw); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.Cart()))
}

func (h *handlers) guestClear(c *gin.Context) {
	store := h.guestStore(c)
	if err := store.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.Cart()))
}

func lineItemParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("lineItemId"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid line item id")
		return 0, false
	}
	return id, true
}
