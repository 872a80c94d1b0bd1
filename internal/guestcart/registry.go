package guestcart

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"storefront/internal/lineid"
	"storefront/internal/logging"
)

// Registry keeps recently used guest carts open. An evicted cart is
// reopened from storage on its next use.
type Registry struct {
	mu      sync.Mutex
	storage Storage
	cache   *lru.Cache
	ids     lineid.Generator
	logger  *zap.Logger
}

// NewRegistry returns a registry holding at most size open carts.
func NewRegistry(storage Storage, size int, logger *zap.Logger) (*Registry, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("guest cart cache: %w", err)
	}
	return &Registry{
		storage: storage,
		cache:   cache,
		ids:     lineid.NewSession(),
		logger:  logging.OrNop(logger).Named("guestcart"),
	}, nil
}

// Get returns the open cart for guestID, loading it when needed. A cart
// whose load failed is returned but not kept, so the next Get retries.
func (r *Registry) Get(ctx context.Context, guestID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache.Get(guestID); ok {
		return v.(*Store)
	}
	s := Open(ctx, r.storage, KeyFor(guestID), WithIDs(r.ids), WithLogger(r.logger))
	if s.Loaded() {
		r.cache.Add(guestID, s)
	}
	return s
}

// Forget drops the open cart for guestID without touching storage.
func (r *Registry) Forget(guestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(guestID)
}

// Len returns the number of open carts.
func (r *Registry) Len() int {
	return r.cache.Len()
}
