package token

import (
	"context"
	"sync"
	"time"
)

// DefaultBuffer is how long before expiry a token is treated as stale.
const DefaultBuffer = 5 * time.Minute

// Store holds one Manager per client pair. It is the only process-wide mutable
// state shared between requests and is injected into the provider registry.
type Store struct {
	mu       sync.RWMutex
	managers map[Key]*Manager

	fetcher   Fetcher
	buffer    time.Duration
	now       func() time.Time
	onRefresh func(result string)
}

// NewStore creates a store. A non-positive buffer falls back to DefaultBuffer.
func NewStore(f Fetcher, buffer time.Duration) *Store {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Store{
		managers: make(map[Key]*Manager),
		fetcher:  f,
		buffer:   buffer,
		now:      time.Now,
	}
}

// OnRefresh registers a hook receiving "success", "error" or "invalidated".
// Must be called before the store is used.
func (s *Store) OnRefresh(fn func(result string)) {
	s.onRefresh = fn
}

// Manager returns (or lazily creates) the manager for a client pair.
func (s *Store) Manager(k Key) *Manager {
	s.mu.RLock()
	m, ok := s.managers[k]
	s.mu.RUnlock()
	if ok {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.managers[k]; ok {
		return m
	}
	m = newManager(s.fetcher, s.buffer, s.now, s.onRefresh)
	s.managers[k] = m
	return m
}

// Fresh returns a usable token for c.
func (s *Store) Fresh(ctx context.Context, c Client) (Result, error) {
	return s.Manager(c.Key).Fresh(ctx, c)
}

// Invalidate clears the cached token for k.
func (s *Store) Invalidate(k Key) {
	s.Manager(k).Invalidate()
}

// State reports the lifecycle state for k without creating a manager.
func (s *Store) State(k Key) State {
	s.mu.RLock()
	m, ok := s.managers[k]
	s.mu.RUnlock()
	if !ok {
		return StateEmpty
	}
	return m.State()
}
