package guestcart

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

// StorageKey is the name under which a guest cart is persisted.
const StorageKey = "guestCart"

// KeyFor scopes StorageKey to a single guest.
func KeyFor(guestID string) string {
	return StorageKey + ":" + guestID
}

// Storage persists serialized guest carts. Load returns domain.ErrNotFound
// when nothing is stored under key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps payloads in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, payload []byte) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.mu.Lock()
	m.data[key] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.data, key)
	return nil
}
