// Package guestcart persists guest cart payloads in Postgres.
package guestcart

import (
	"context"
	"time"
)

// Repository is the guest cart persistence contract. It satisfies
// guestcart.Storage in the service layer.
type Repository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	// PurgeBefore removes carts not written since cutoff and returns how
	// many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
