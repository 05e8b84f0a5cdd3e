package categorize

import (
	"context"
	"sync"
	"time"
)

// Cache stores categorizations by Key. Upsert keeps whichever of the stored and incoming
// entries should win and returns it.
type Cache interface {
	Get(ctx context.Context, key string) (Categorization, bool, error)
	Upsert(ctx context.Context, c Categorization) (Categorization, error)
}

// keepExisting decides an upsert. Pinned user corrections beat automated results, a newer
// correction replaces an older one, and otherwise higher confidence wins with ties refreshing.
func keepExisting(existing, incoming Categorization) bool {
	if existing.Pinned != incoming.Pinned {
		return existing.Pinned
	}
	if existing.Pinned {
		return false
	}
	return existing.Confidence > incoming.Confidence
}

// MemoryCache is an in-process Cache. Unpinned entries expire after TTL.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Categorization
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache returns a cache whose unpinned entries live for ttl. A zero ttl never expires.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Categorization),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryCache) expired(c Categorization) bool {
	if c.Pinned || m.ttl <= 0 {
		return false
	}
	return m.now().Sub(c.UpdatedAt) >= m.ttl
}

func (m *MemoryCache) Get(_ context.Context, key string) (Categorization, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.entries[key]
	if !ok {
		return Categorization{}, false, nil
	}
	if m.expired(c) {
		delete(m.entries, key)
		return Categorization{}, false, nil
	}
	return c, true, nil
}

func (m *MemoryCache) Upsert(_ context.Context, c Categorization) (Categorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[c.Key]; ok && !m.expired(existing) && keepExisting(existing, c) {
		return existing, nil
	}
	c.UpdatedAt = m.now()
	m.entries[c.Key] = c
	return c, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
