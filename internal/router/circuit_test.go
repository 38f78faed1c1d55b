package router

import (
	"testing"
	"time"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func breakerAt(threshold int, cooldown time.Duration) (*CircuitBreaker, *clock, *[]CircuitState) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	var changes []CircuitState
	cb := NewCircuitBreaker(threshold, cooldown)
	cb.now = c.now
	cb.onChange = func(s CircuitState) { changes = append(changes, s) }
	return cb, c, &changes
}

func assertChanges(t *testing.T, got []CircuitState, want ...CircuitState) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCircuitBreaker_TripsOnConsecutiveFailures(t *testing.T) {
	cb, _, changes := breakerAt(3, 30*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed || !cb.Allow() {
		t.Fatalf("state after 2 failures = %s", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != StateOpen || cb.Allow() {
		t.Errorf("state after 3 failures = %s", cb.State())
	}
	assertChanges(t, *changes, StateOpen)
}

func TestCircuitBreaker_SuccessBreaksTheRun(t *testing.T) {
	cb, _, changes := breakerAt(3, 30*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Errorf("state = %s; intermittent failures must not trip", cb.State())
	}
	assertChanges(t, *changes)
}

func TestCircuitBreaker_CooldownThenRecovery(t *testing.T) {
	tests := []struct {
		name    string
		outcome func(*CircuitBreaker)
		final   CircuitState
	}{
		{"success closes", (*CircuitBreaker).RecordSuccess, StateClosed},
		{"failure reopens", (*CircuitBreaker).RecordFailure, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, c, changes := breakerAt(1, 30*time.Second)
			cb.RecordFailure()

			c.advance(29 * time.Second)
			if cb.Allow() {
				t.Fatal("allowed before the cooldown ended")
			}
			c.advance(time.Second)
			if !cb.Allow() || cb.State() != StateHalfOpen {
				t.Fatalf("state after cooldown = %s", cb.State())
			}

			tt.outcome(cb)
			if cb.State() != tt.final {
				t.Errorf("state = %s, want %s", cb.State(), tt.final)
			}
			assertChanges(t, *changes, StateOpen, StateHalfOpen, tt.final)
		})
	}
}

func TestCircuitBreaker_ReopenRestartsCooldown(t *testing.T) {
	cb, c, _ := breakerAt(1, 10*time.Second)
	cb.RecordFailure()
	c.advance(10 * time.Second)
	cb.RecordFailure() // fails while half-open

	c.advance(9 * time.Second)
	if cb.State() != StateOpen {
		t.Errorf("state = %s; cooldown must restart from the reopen", cb.State())
	}
	c.advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Errorf("state = %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenOnRecordWithoutRead(t *testing.T) {
	// An outcome recorded after the cooldown counts as the deciding one even
	// if nobody called Allow or State in between.
	cb, c, changes := breakerAt(1, 10*time.Second)
	cb.RecordFailure()
	c.advance(time.Minute)
	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Errorf("state = %s", cb.State())
	}
	assertChanges(t, *changes, StateOpen, StateHalfOpen, StateClosed)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _, changes := breakerAt(2, time.Hour)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.Reset()
	if cb.State() != StateClosed || !cb.Allow() {
		t.Fatalf("state after reset = %s", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Errorf("reset must clear the failure run, state = %s", cb.State())
	}
	assertChanges(t, *changes, StateOpen, StateClosed)
}

func TestNewCircuitBreaker_ThresholdFloor(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Hour)
	if cb.State() != StateClosed {
		t.Fatalf("state = %s", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("state = %s", cb.State())
	}
}

func TestHealthTracker_StateFeedsHook(t *testing.T) {
	ht := NewHealthTracker(2, time.Hour)
	var got []string
	ht.OnStateChange(func(p string, s CircuitState) { got = append(got, p+"="+s.String()) })

	ht.RecordFailure("gemini")
	ht.RecordFailure("gemini")
	ht.RecordFailure("dalle")

	if ht.State("gemini") != StateOpen || ht.State("dalle") != StateClosed {
		t.Errorf("states = %s, %s", ht.State("gemini"), ht.State("dalle"))
	}
	if len(got) != 1 || got[0] != "gemini=open" {
		t.Errorf("hook calls = %v", got)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
