package session

import (
	"context"
	"sync"
	"time"
)

// MemoryScope keeps values in process memory.
type MemoryScope struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryScope returns an empty MemoryScope.
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{values: make(map[string]string)}
}

func (s *MemoryScope) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryScope) SetIfAbsent(_ context.Context, key, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.values[key]; ok {
		return existing, nil
	}
	s.values[key] = value
	return value, nil
}

// Clear drops every value, like wiping the browser's storage.
func (s *MemoryScope) Clear(_ context.Context) error {
	s.mu.Lock()
	s.values = make(map[string]string)
	s.mu.Unlock()
	return nil
}

// MemoryScopes keeps one MemoryScope per visitor. Scopes live until Evict
// drops them.
type MemoryScopes struct {
	mu     sync.Mutex
	scopes map[string]*visitorScope
	now    func() time.Time
}

type visitorScope struct {
	scope    *MemoryScope
	lastSeen time.Time
}

// NewMemoryScopes returns an empty provider.
func NewMemoryScopes() *MemoryScopes {
	return &MemoryScopes{scopes: make(map[string]*visitorScope), now: time.Now}
}

func (m *MemoryScopes) Scope(visitorID string) Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scopes[visitorID]
	if !ok {
		v = &visitorScope{scope: NewMemoryScope()}
		m.scopes[visitorID] = v
	}
	v.lastSeen = m.now()
	return v.scope
}

// Evict forgets visitors whose scope was not requested since cutoff. A
// returning visitor starts over with a new session id.
func (m *MemoryScopes) Evict(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, v := range m.scopes {
		if v.lastSeen.Before(cutoff) {
			delete(m.scopes, id)
			evicted++
		}
	}
	return evicted
}

// Len reports how many visitors are held.
func (m *MemoryScopes) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scopes)
}
