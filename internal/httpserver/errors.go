package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// writeError maps service errors to responses. Session expiry is checked
// first so clients always see it as a 401.
func (h *handlers) writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, errorBody) {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, sessionExpiredBody()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "forbidden", Code: "FORBIDDEN"}
	case errors.Is(err, domain.ErrStockExceeded):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "STOCK_EXCEEDED"}
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidPincode),
		errors.Is(err, checkout.ErrAddressRequired),
		errors.Is(err, checkout.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: "INVALID_REQUEST"}
	case errors.Is(err, domain.ErrLineItemNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "LINE_ITEM_NOT_FOUND"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found", Code: "NOT_FOUND", Message: backend.Message(err)}
	case errors.Is(err, checkout.ErrNotServiceable):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "NOT_SERVICEABLE"}
	case errors.Is(err, domain.ErrRejected):
		return http.StatusUnprocessableEntity, errorBody{Error: "rejected by backend", Code: "REJECTED", Message: backend.Message(err)}
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, errorBody{Error: "backend unavailable", Code: "UPSTREAM"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"}
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Code: "INVALID_REQUEST"})
}
