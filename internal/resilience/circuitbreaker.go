// Package resilience provides circuit breaker and backend failover primitives
// for the provider layer.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a backend that keeps failing. [FallbackGroup] composes a
// primary and ordered fallbacks of any provider type, each behind its own
// breaker, so requests route around an unhealthy backend automatically.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is
// open and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards all calls. This is the normal operating state.
	StateClosed State = iota

	// StateOpen rejects calls immediately with [ErrCircuitOpen]. Entered
	// after too many consecutive failures; left when the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen admits a limited number of probe calls. Enough successes
	// close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is how many consecutive failures the closed state tolerates
	// before opening. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before admitting
	// probes. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is how many probe calls the half-open state admits, and
	// how many must succeed for the breaker to close. Default: 3.
	HalfOpenMax int
}

// CircuitBreaker implements the three-state circuit breaker pattern.
// It is safe for concurrent use from multiple goroutines.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	clock        func() time.Time

	mu         sync.Mutex
	state      State
	failures   int       // consecutive failures while closed
	openedAt   time.Time // last failure that matters for the reset timeout
	probes     int       // calls admitted while half-open
	probeFails int
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied configuration.
// Zero-value config fields are replaced with sensible defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		clock:        time.Now,
	}
}

// Execute runs fn if the breaker admits the call. In the open state it returns
// [ErrCircuitOpen] without calling fn; in the half-open state only the probe
// budget is admitted. fn's error is returned as-is.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.settleFailure(probing)
	} else {
		cb.settleSuccess(probing)
	}
	return err
}

// admit decides whether a call may proceed, moving an expired open breaker to
// half-open on the way. The returned bool reports whether the call counts
// against the probe budget.
func (cb *CircuitBreaker) admit() (probing bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.clock().Sub(cb.openedAt) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeFails = 0
		slog.Info("circuit breaker transitioning to half-open", "name", cb.name)

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, nil
	}
	return false, nil
}

// settleFailure records a failed call. Must be called with cb.mu held.
func (cb *CircuitBreaker) settleFailure(probing bool) {
	cb.openedAt = cb.clock()

	if probing {
		// One bad probe is enough; back to open for a full timeout.
		cb.probeFails++
		cb.state = StateOpen
		cb.failures = cb.maxFailures
		slog.Warn("circuit breaker re-opened from half-open", "name", cb.name)
		return
	}

	cb.failures++
	if cb.state == StateClosed && cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"consecutive_failures", cb.failures)
	}
}

// settleSuccess records a successful call. Must be called with cb.mu held.
func (cb *CircuitBreaker) settleSuccess(probing bool) {
	if probing {
		if cb.probes-cb.probeFails >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.probeFails = 0
			slog.Info("circuit breaker closed after successful probes", "name", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State returns the current [State] of the breaker. An open breaker whose
// reset timeout has elapsed reports [StateHalfOpen]; the actual transition
// happens on the next [CircuitBreaker.Execute] call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.clock().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed], clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeFails = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
