package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hantube/hantube/internal/observe"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] fails or
// has an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-backend circuit breaker created for each
// entry in a [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig

	// Kind labels provider request and error counters, typically "llm",
	// "stt", or "embeddings". The typed wrappers fill it in when empty.
	Kind string

	// Metrics receives per-backend request and error counters.
	// Defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// fallbackEntry pairs a backend with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup routes calls across a primary and zero or more fallback
// instances of the same provider type. Backends are tried in registration
// order; one whose breaker is open is skipped without a call.
//
// FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
	metrics *observe.Metrics
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
// Additional backends are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg, metrics: cfg.Metrics}
	if fg.metrics == nil {
		fg.metrics = observe.DefaultMetrics()
	}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend. Fallbacks are tried in the order they are
// added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute tries fn against each backend in order until one succeeds. Returns
// [ErrAllFailed] wrapping the last error when every backend fails.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each backend in the group until one
// succeeds, returning its result. This is a package-level function because Go
// does not support method-level type parameters.
//
// Each admitted attempt is counted against the backend's provider metrics;
// backends skipped because their breaker is open are not counted as requests.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		if err == nil {
			fg.metrics.RecordProviderRequest(ctx, entry.name, fg.cfg.Kind, "ok")
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
			continue
		}
		fg.metrics.RecordProviderRequest(ctx, entry.name, fg.cfg.Kind, "error")
		fg.metrics.RecordProviderError(ctx, entry.name, fg.cfg.Kind)
		slog.Warn("provider failed, trying next",
			"provider", entry.name, "error", err)
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
