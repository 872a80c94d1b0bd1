package backend

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/domain"
)

// CheckCredential rejects a missing bearer token or a JWT whose exp claim
// has passed, without calling the backend. Opaque tokens pass through and
// are judged by the backend's 401.
func CheckCredential(token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrSessionExpired
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !now.Before(exp.Time) {
		return domain.ErrSessionExpired
	}
	return nil
}
