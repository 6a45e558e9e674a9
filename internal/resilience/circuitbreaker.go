// Package resilience keeps the exercise running when an AI backend
// misbehaves. [CircuitBreaker] is a three-state breaker (closed, open,
// half-open) that stops hammering a failing service; [FallbackGroup]
// chains several providers of one kind behind per-provider breakers so a
// sick primary is bypassed in favour of the next healthy backend. Typed
// wrappers (e.g. [CompletionFallback]) expose a group as the provider
// interface the rest of the code consumes.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Run] while the breaker is
// open and its cooldown has not elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State is a [CircuitBreaker] operating mode.
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the cooldown
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through to decide
	// whether the backend has recovered.
	StateHalfOpen
)

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

// BreakerSettings tunes a [CircuitBreaker]. Zero fields take the defaults.
type BreakerSettings struct {
	// Name labels the breaker in log output.
	Name string

	// FailureLimit is how many consecutive failures open the breaker.
	// Default: 5.
	FailureLimit int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeQuota is how many half-open calls may run before the breaker
	// decides. Default: 3.
	ProbeQuota int
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureLimit <= 0 {
		s.FailureLimit = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.ProbeQuota <= 0 {
		s.ProbeQuota = 3
	}
	return s
}

// CircuitBreaker is a classic three-state breaker.
type CircuitBreaker struct {
	settings BreakerSettings

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probeCalls  int
	probeFailed bool
}

// NewCircuitBreaker returns a closed breaker with the given settings.
func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{settings: settings.withDefaults()}
}

// Run executes fn if the breaker allows it. An open breaker returns
// [ErrCircuitOpen] without calling fn; a half-open breaker admits at most
// ProbeQuota probes, closing after a full quota of successes and re-opening
// on the first probe failure.
func (cb *CircuitBreaker) Run(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn()
	cb.settle(probe, err)
	return err
}

func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.settings.Cooldown {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probeCalls = 0
		cb.probeFailed = false
		slog.Info("circuit breaker probing backend", "name", cb.settings.Name)
	}

	if cb.state == StateHalfOpen {
		if cb.probeCalls >= cb.settings.ProbeQuota {
			return false, ErrCircuitOpen
		}
		cb.probeCalls++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) settle(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if probe {
			if cb.probeCalls >= cb.settings.ProbeQuota && !cb.probeFailed {
				cb.state = StateClosed
				cb.failures = 0
				slog.Info("circuit breaker closed after successful probes",
					"name", cb.settings.Name)
			}
			return
		}
		cb.failures = 0
		return
	}

	cb.openedAt = time.Now()
	if probe {
		cb.probeFailed = true
		cb.state = StateOpen
		cb.failures = cb.settings.FailureLimit
		slog.Warn("circuit breaker re-opened after failed probe",
			"name", cb.settings.Name)
		return
	}

	cb.failures++
	if cb.state == StateClosed && cb.failures >= cb.settings.FailureLimit {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.settings.Name, "failures", cb.failures)
	}
}

// State reports the breaker's mode. An open breaker whose cooldown has
// elapsed reports [StateHalfOpen]; the transition itself happens on the
// next Run.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.settings.Cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probeCalls = 0
	cb.probeFailed = false
}
