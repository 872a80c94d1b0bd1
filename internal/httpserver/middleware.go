package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

const (
	guestTokenHeader = "X-Guest-Token"

	ctxGuestID    = "guestID"
	ctxGuestToken = "guestToken"
	ctxBearer     = "bearerToken"
)

// guestMiddleware resolves X-Guest-Token to a guest id.
func guestMiddleware(sessions guestSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(guestTokenHeader))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "guest token required", Code: "GUEST_TOKEN_REQUIRED"})
			return
		}
		guestID, err := sessions.LookupByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "guest session invalid", Code: "GUEST_SESSION_INVALID"})
			return
		}
		c.Set(ctxGuestID, guestID)
		c.Set(ctxGuestToken, token)
		c.Next()
	}
}

// bearerMiddleware requires an Authorization: Bearer header. A missing
// token is reported as an expired session so clients log out.
func bearerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, sessionExpiredBody())
			return
		}
		c.Set(ctxBearer, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func sessionExpiredBody() errorBody {
	return errorBody{Error: domain.ErrSessionExpired.Error(), Code: "SESSION_EXPIRED"}
}
