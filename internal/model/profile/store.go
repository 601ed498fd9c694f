package profile

import "sync"

// Store exposes the active profile to handlers.
type Store interface {
	Get() Profile
}

// MemoryStore implements Store with a single in-memory profile.
type MemoryStore struct {
	mu   sync.RWMutex
	item Profile
}

// NewMemoryStore returns a MemoryStore holding the supplied profile.
func NewMemoryStore(item Profile) *MemoryStore {
	return &MemoryStore{item: item.Clone()}
}

// Get returns a copy of the stored profile.
func (s *MemoryStore) Get() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item.Clone()
}

// Replace swaps the stored profile.
func (s *MemoryStore) Replace(item Profile) {
	s.mu.Lock()
	s.item = item.Clone()
	s.mu.Unlock()
}
