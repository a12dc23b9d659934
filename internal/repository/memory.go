package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu         sync.Mutex
	limits     Limits
	history    map[string][]Entry
	lastAccess map[string]time.Time
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{
		limits:     limits,
		history:    make(map[string][]Entry),
		lastAccess: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Append adds entries to the session.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()
	merged := append(s.history[sessionID], entries...)
	s.history[sessionID] = append([]Entry(nil), s.limits.trim(merged)...)
	s.lastAccess[sessionID] = s.now()
	return nil
}

// History returns a copy of the session entries.
func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanup()
	entries, ok := s.history[sessionID]
	if !ok {
		return []Entry{}, nil
	}
	s.lastAccess[sessionID] = s.now()
	return append([]Entry(nil), entries...), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// cleanup drops expired sessions; the caller holds s.mu.
func (s *MemoryStore) cleanup() {
	if s.limits.TTL <= 0 {
		return
	}
	now := s.now()
	for id, last := range s.lastAccess {
		if now.Sub(last) > s.limits.TTL {
			delete(s.history, id)
			delete(s.lastAccess, id)
		}
	}
}
