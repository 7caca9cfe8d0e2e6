package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store using an in-memory map.
// Useful for tests and single-process deployments without durability needs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Get implements Store.
// Returns (nil, nil) if the entity has no persisted blob.
func (s *MemoryStore) Get(ctx context.Context, entityID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, exists := s.blobs[entityID]
	if !exists {
		return nil, nil
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, entityID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[entityID] = cp
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, entityID)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs = nil
	return nil
}
