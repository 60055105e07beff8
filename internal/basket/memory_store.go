package basket

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used in tests and local development
// without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	baskets map[string][]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{baskets: make(map[string][]Item)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.baskets[sessionID]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]Item, len(items))
	copy(stored, items)
	s.baskets[sessionID] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.baskets, sessionID)
	return nil
}
