package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [Group] fails or sits
// behind an open breaker.
var ErrAllFailed = errors.New("all providers failed")

// groupEntry pairs a provider value with its dedicated breaker.
type groupEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Group wraps a primary and zero or more fallback instances of the same
// provider type, tried in registration order. Each entry gets its own
// [Breaker] built from the shared config.
//
// Group is safe for concurrent use once registration is complete.
type Group[T any] struct {
	entries []groupEntry[T]
	cfg     BreakerConfig
}

// NewGroup creates a [Group] with primary as the first entry. cfg.Name is
// replaced per entry.
func NewGroup[T any](primary T, primaryName string, cfg BreakerConfig) *Group[T] {
	g := &Group[T]{cfg: cfg}
	g.add(primaryName, primary)
	return g
}

// AddFallback appends a fallback provider, tried after all earlier entries.
func (g *Group[T]) AddFallback(name string, fallback T) {
	g.add(name, fallback)
}

func (g *Group[T]) add(name string, value T) {
	cfg := g.cfg
	cfg.Name = name
	g.entries = append(g.entries, groupEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// Primary returns the first registered provider.
func (g *Group[T]) Primary() T {
	return g.entries[0].value
}

// Do runs fn against each entry in order until one succeeds, skipping
// entries with open breakers. A package-level function because Go does not
// allow method-level type parameters.
func Do[T, R any](g *Group[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.entries {
		entry := &g.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping provider, circuit open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
