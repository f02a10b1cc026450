package store

import (
	"context"
	"sync"

	"github.com/Sternrassler/httpcache/pkg/cache"
)

// MemoryStore keeps entries in process memory. Entries are copied on the way
// in and out, so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*cache.Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*cache.Entry),
	}
}

// Lookup implements cache.Adapter.
func (m *MemoryStore) Lookup(_ context.Context, req *cache.Request) (*cache.Response, error) {
	m.mu.RLock()
	entry, ok := m.entries[cache.KeyFor(req).String()]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return entry.Response(), nil
}

// Store implements cache.Adapter. The last write for a key wins.
func (m *MemoryStore) Store(_ context.Context, req *cache.Request, resp *cache.Response) error {
	entry := cache.NewEntry(req, resp)

	m.mu.Lock()
	m.entries[cache.KeyFor(req).String()] = entry
	m.mu.Unlock()

	return nil
}

// Delete removes the entry for req. Idempotent.
func (m *MemoryStore) Delete(_ context.Context, req *cache.Request) error {
	m.mu.Lock()
	delete(m.entries, cache.KeyFor(req).String())
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ cache.Adapter = (*MemoryStore)(nil)
