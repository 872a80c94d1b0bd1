package cart

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Sessions keeps one Service per bearer token for recently active
// shoppers. An evicted session is rebuilt empty and refetches on use.
type Sessions struct {
	mu    sync.Mutex
	cache *lru.Cache
	api   backendAPI
	opts  []Option
}

func NewSessions(api backendAPI, size int, opts ...Option) (*Sessions, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("cart session cache: %w", err)
	}
	return &Sessions{cache: cache, api: api, opts: opts}, nil
}

// Get returns the cart for token, creating it when needed.
func (s *Sessions) Get(token string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(token); ok {
		return v.(*Service)
	}
	svc := New(s.api, token, s.opts...)
	s.cache.Add(token, svc)
	return svc
}

// Forget drops the session for token, e.g. after the backend reports it
// expired.
func (s *Sessions) Forget(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(token)
}
