package token

import (
	"context"
	"time"
)

// Token binds a guest session token to the guest id keying its cart.
type Token struct {
	Token     string
	GuestID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
