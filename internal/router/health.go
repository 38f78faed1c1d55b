package router

import (
	"sync"
	"time"
)

// HealthTracker manages circuit breakers for all providers.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	threshold int
	cooldown  time.Duration

	onStateChange func(provider string, state CircuitState)
}

// NewHealthTracker creates a health tracker whose breakers trip after
// threshold consecutive failures and stay open for cooldown.
func NewHealthTracker(threshold int, cooldown time.Duration) *HealthTracker {
	return &HealthTracker{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// GetBreaker returns (or lazily creates) the circuit breaker for a provider.
func (ht *HealthTracker) GetBreaker(provider string) *CircuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[provider]
	ht.mu.RUnlock()
	if ok {
		return cb
	}

	ht.mu.Lock()
	defer ht.mu.Unlock()
	// Double-check after acquiring write lock
	if cb, ok := ht.breakers[provider]; ok {
		return cb
	}
	cb = NewCircuitBreaker(ht.threshold, ht.cooldown)
	if fn := ht.onStateChange; fn != nil {
		cb.onChange = func(s CircuitState) { fn(provider, s) }
	}
	ht.breakers[provider] = cb
	return cb
}

// OnStateChange registers a hook for circuit transitions. Only breakers created
// afterwards report to it, so register before serving traffic.
func (ht *HealthTracker) OnStateChange(fn func(provider string, state CircuitState)) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	ht.onStateChange = fn
}

// State returns the provider's current circuit state.
func (ht *HealthTracker) State(provider string) CircuitState {
	return ht.GetBreaker(provider).State()
}

// IsAvailable returns true if the provider's circuit breaker allows requests.
func (ht *HealthTracker) IsAvailable(provider string) bool {
	return ht.GetBreaker(provider).Allow()
}

// RecordSuccess records a successful request for the provider.
func (ht *HealthTracker) RecordSuccess(provider string) {
	ht.GetBreaker(provider).RecordSuccess()
}

// RecordFailure records a failed request for the provider.
func (ht *HealthTracker) RecordFailure(provider string) {
	ht.GetBreaker(provider).RecordFailure()
}
