package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get retrieves an entry. Returns (Entry{}, false) on miss.
func (s *MemoryStore) Get(_ context.Context, hash string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[hash]
	s.mu.RUnlock()
	return e, ok
}

// Put stores e unless an entry for the same hash exists.
func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	if err := ValidateKey(e.ContentHash); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.entries[e.ContentHash]; !ok {
		s.entries[e.ContentHash] = e
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
