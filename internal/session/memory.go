package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Default lifetimes for in-memory sessions.
const (
	DefaultMemoryTTL     = 12 * time.Hour
	defaultCleanupPeriod = 10 * time.Minute
)

// MemoryStore keeps contexts in process memory. Entries expire after the
// configured idle TTL, like a closed browser tab.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryStore creates a store whose entries expire after ttl of inactivity.
// A non-positive ttl uses DefaultMemoryTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryStore{cache: cache.New(ttl, defaultCleanupPeriod)}
}

// Get returns the context for id.
func (m *MemoryStore) Get(_ context.Context, id string) (Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id), nil
}

// SetSlot writes one slot.
func (m *MemoryStore) SetSlot(_ context.Context, id string, slot Slot, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.get(id).With(slot, value)
	if err != nil {
		return fmt.Errorf("set slot for %s: %w", id, err)
	}
	m.cache.Set(id, next, cache.DefaultExpiration)
	return nil
}

// Set overwrites all slots.
func (m *MemoryStore) Set(_ context.Context, id string, c Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(id, c, cache.DefaultExpiration)
	return nil
}

// Clear removes the context for id.
func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// List returns the live session ids in sorted order.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	items := m.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close flushes all entries.
func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}

func (m *MemoryStore) get(id string) Context {
	if x, found := m.cache.Get(id); found {
		return x.(Context)
	}
	return Context{}
}
