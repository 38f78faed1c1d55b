package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process. Used when no database is configured
// and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	bySession map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySession: make(map[string]*Record)}
}

func (s *MemoryStore) Create(_ context.Context, r *Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	cp.ID = uuid.NewString()
	cp.AssetURL = append([]string(nil), r.AssetURL...)
	s.bySession[cp.SessionID] = &cp
	return cp.ID, nil
}

func (s *MemoryStore) BySession(_ context.Context, sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.AssetURL = append([]string(nil), r.AssetURL...)
	return &cp, nil
}

func (s *MemoryStore) IncrementDisplayed(_ context.Context, sessionID string, by int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.bySession[sessionID]
	if !ok {
		return ErrNotFound
	}
	r.Displayed += by
	return nil
}
