package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/google/uuid"
)

type memoryItem struct {
	rec       cache.Record
	expiresAt time.Time
}

// MemoryIdempotencyCache implements cache.IdempotencyCache in process. Expired items are
// dropped lazily on access.
type MemoryIdempotencyCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

var _ cache.IdempotencyCache = (*MemoryIdempotencyCache)(nil)

// NewMemoryIdempotencyCache creates an empty cache.
func NewMemoryIdempotencyCache() *MemoryIdempotencyCache {
	return &MemoryIdempotencyCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (m *MemoryIdempotencyCache) Get(_ context.Context, ownerID uuid.UUID, key string) (*cache.Record, error) {
	k := itemKey(ownerID, key)
	m.mu.RLock()
	item, ok := m.items[k]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, k)
		m.mu.Unlock()
		return nil, nil
	}
	rec := item.rec
	return &rec, nil
}

func (m *MemoryIdempotencyCache) Set(_ context.Context, ownerID uuid.UUID, key string, rec cache.Record, ttl time.Duration) error {
	item := memoryItem{rec: rec}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[itemKey(ownerID, key)] = item
	return nil
}

func itemKey(ownerID uuid.UUID, key string) string {
	return "idem:" + ownerID.String() + ":" + key
}
