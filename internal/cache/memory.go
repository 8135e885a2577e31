package cache

import (
	"sync"
	"time"
)

// MemoryCache implements Cache in process memory. When MaxEntries is reached
// expired entries are dropped first, then the oldest insertion.
type MemoryCache[V any] struct {
	mu         sync.RWMutex
	items      map[string]Entry[V]
	maxEntries int
	seq        uint64
	now        func() time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries values. Zero or
// less means unbounded.
func NewMemoryCache[V any](maxEntries int) *MemoryCache[V] {
	return &MemoryCache[V]{
		items:      make(map[string]Entry[V]),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get retrieves a live value.
func (m *MemoryCache[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.items[key]
	if !ok || entry.IsExpired(m.now()) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores value for ttl.
func (m *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.cleanupLocked()
		if len(m.items) >= m.maxEntries {
			m.evictOldestLocked()
		}
	}
	m.seq++
	m.items[key] = Entry[V]{Value: value, ExpiresAt: m.now().Add(ttl), seq: m.seq}
}

// Delete removes a value.
func (m *MemoryCache[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Clear removes all values.
func (m *MemoryCache[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]Entry[V])
}

// Len returns the number of entries, expired ones included.
func (m *MemoryCache[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Cleanup removes expired entries.
func (m *MemoryCache[V]) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupLocked()
}

func (m *MemoryCache[V]) cleanupLocked() {
	now := m.now()
	for key, entry := range m.items {
		if entry.IsExpired(now) {
			delete(m.items, key)
		}
	}
}

func (m *MemoryCache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for key, entry := range m.items {
		if !found || entry.seq < oldestSeq {
			oldestKey, oldestSeq, found = key, entry.seq, true
		}
	}
	if found {
		delete(m.items, oldestKey)
	}
}

var _ Cache[int] = (*MemoryCache[int])(nil)
