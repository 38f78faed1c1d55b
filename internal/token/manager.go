// Package token caches OAuth client-credentials bearer tokens and refreshes them
// proactively before expiry and reactively after the provider rejects one.
package token

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultExpiresIn is assumed when the token endpoint omits expires_in.
const DefaultExpiresIn = 3600 * time.Second

// ErrMissingCredentials is returned when a client ID or secret is blank.
var ErrMissingCredentials = errors.New("client id and secret are required")

// Key identifies one cached token.
type Key struct {
	ClientID     string
	ClientSecret string
}

// Client is everything needed to run the client-credentials grant.
type Client struct {
	Key
	TokenURL string
	Scopes   []string
}

// Grant is what a token endpoint hands back.
type Grant struct {
	AccessToken string
	// ExpiresIn is zero when the endpoint did not report a lifetime.
	ExpiresIn time.Duration
}

// Fetcher performs the client-credentials exchange.
type Fetcher interface {
	Fetch(ctx context.Context, c Client) (Grant, error)
}

// CachedToken is the current bearer credential for one client pair.
type CachedToken struct {
	AccessToken string
	ObtainedAt  time.Time
	ExpiresAt   time.Time
}

// Result is returned to callers asking for a usable token.
type Result struct {
	AccessToken string
	ExpiresIn   time.Duration
	Refreshed   bool
}

// State is the lifecycle position of a cached token.
type State string

const (
	StateEmpty        State = "empty"
	StateValid        State = "valid"
	StateExpiringSoon State = "expiring_soon"
	StateExpired      State = "expired"
)

// Manager owns the token for a single client pair. The mutex is held across the
// whole check-refresh-store sequence, so concurrent callers wait for one refresh.
type Manager struct {
	mu     sync.Mutex
	cached *CachedToken

	fetcher   Fetcher
	buffer    time.Duration
	now       func() time.Time
	onRefresh func(result string)
}

func newManager(f Fetcher, buffer time.Duration, now func() time.Time, onRefresh func(string)) *Manager {
	return &Manager{fetcher: f, buffer: buffer, now: now, onRefresh: onRefresh}
}

// Fresh returns a token valid for at least the buffer, refreshing when needed.
// A failed refresh leaves the cache untouched.
func (m *Manager) Fresh(ctx context.Context, c Client) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.cached != nil && m.cached.ExpiresAt.After(now.Add(m.buffer)) {
		return Result{AccessToken: m.cached.AccessToken, ExpiresIn: m.cached.ExpiresAt.Sub(now)}, nil
	}

	if c.ClientID == "" || c.ClientSecret == "" {
		m.record("error")
		return Result{}, ErrMissingCredentials
	}

	g, err := m.fetcher.Fetch(ctx, c)
	if err != nil {
		m.record("error")
		return Result{}, err
	}

	expiresIn := g.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	obtained := m.now()
	m.cached = &CachedToken{
		AccessToken: g.AccessToken,
		ObtainedAt:  obtained,
		ExpiresAt:   obtained.Add(expiresIn),
	}
	m.record("success")
	return Result{AccessToken: g.AccessToken, ExpiresIn: expiresIn, Refreshed: true}, nil
}

// Invalidate drops the cached token. Called after a 401/403 from the provider.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
	m.record("invalidated")
}

// set installs a token directly; tests seed the cache with it.
func (m *Manager) set(t CachedToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = &t
}

// State reports where the cached token sits in its lifecycle.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil {
		return StateEmpty
	}
	now := m.now()
	switch {
	case !m.cached.ExpiresAt.After(now):
		return StateExpired
	case !m.cached.ExpiresAt.After(now.Add(m.buffer)):
		return StateExpiringSoon
	default:
		return StateValid
	}
}

func (m *Manager) record(result string) {
	if m.onRefresh != nil {
		m.onRefresh(result)
	}
}
