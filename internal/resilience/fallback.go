package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when every provider in a [FallbackGroup] failed
// or was skipped because its breaker is open. The last provider error is
// attached to the chain.
var ErrExhausted = errors.New("resilience: all providers exhausted")

// GroupSettings configures a [FallbackGroup].
type GroupSettings struct {
	// Breaker is the template for each provider's circuit breaker; the
	// breaker name is set to the provider's name.
	Breaker BreakerSettings

	// Permanent, if set, classifies errors that no other provider can fix
	// (e.g. a content-policy rejection of the request itself). A permanent
	// error stops the chain immediately, is returned unwrapped, and does
	// not count against the provider's breaker.
	Permanent func(error) bool
}

type groupEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallback providers of one
// kind behind per-provider circuit breakers. Providers are tried in
// registration order; open breakers are skipped.
//
// Safe for concurrent use once registration is complete.
type FallbackGroup[T any] struct {
	entries  []groupEntry[T]
	settings GroupSettings
}

// NewFallbackGroup creates a group with primary as its first entry.
func NewFallbackGroup[T any](primary T, primaryName string, settings GroupSettings) *FallbackGroup[T] {
	g := &FallbackGroup[T]{settings: settings}
	g.add(primaryName, primary)
	return g
}

// AddFallback appends a provider tried after all earlier entries.
func (g *FallbackGroup[T]) AddFallback(name string, fallback T) {
	g.add(name, fallback)
}

func (g *FallbackGroup[T]) add(name string, value T) {
	bs := g.settings.Breaker
	bs.Name = name
	g.entries = append(g.entries, groupEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(bs),
	})
}

// Names returns the provider names in try order.
func (g *FallbackGroup[T]) Names() []string {
	names := make([]string, len(g.entries))
	for i, e := range g.entries {
		names[i] = e.name
	}
	return names
}

// Degraded reports whether every provider's breaker is open, meaning the
// group cannot serve any call right now.
func (g *FallbackGroup[T]) Degraded() bool {
	for i := range g.entries {
		if g.entries[i].breaker.State() != StateOpen {
			return false
		}
	}
	return true
}

// Do runs fn against each provider until one succeeds.
func (g *FallbackGroup[T]) Do(fn func(T) error) error {
	_, err := DoResult(g, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// DoResult runs fn against each provider in the group until one succeeds
// and returns its result. A package-level function because Go methods
// cannot introduce type parameters.
func DoResult[T any, R any](g *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		permErr error
		zero    R
	)
	for i := range g.entries {
		entry := &g.entries[i]
		var result R
		err := entry.breaker.Run(func() error {
			r, callErr := fn(entry.value)
			if callErr != nil && g.settings.Permanent != nil && g.settings.Permanent(callErr) {
				// The request itself is unacceptable; the backend is fine.
				permErr = callErr
				return nil
			}
			result = r
			return callErr
		})
		if permErr != nil {
			return zero, permErr
		}
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider with open breaker", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}
