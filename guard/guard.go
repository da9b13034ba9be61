// Package guard composes resilience primitives around an operation.
//
// The core packages only gate and observe: the circuit breaker hands out
// permission and receives outcomes, the rate limiter hands out permission,
// the bulkhead bounds concurrency. An Executor is the thin decorator that
// invokes them in order around an arbitrary operation, timing the call and
// reporting its outcome back to the breaker.
//
// Denials surface unchanged (circuit.ErrCallNotPermitted,
// ratelimit.ErrPermissionDenied, bulkhead.ErrFull) so callers can apply a
// fallback strategy distinct from handling the backend's own errors.
package guard

import (
	"context"
	"time"

	"github.com/jonwraymond/breakwater/bulkhead"
	"github.com/jonwraymond/breakwater/circuit"
	"github.com/jonwraymond/breakwater/ratelimit"
)

// Executor composes a rate limiter, bulkhead, and circuit breaker around
// operations. Any subset may be configured.
type Executor struct {
	breaker *circuit.CircuitBreaker
	limiter *ratelimit.Limiter
	bulk    *bulkhead.Bulkhead
}

// Option configures an Executor.
type Option func(*Executor)

// NewExecutor creates a new executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *circuit.CircuitBreaker) Option {
	return func(e *Executor) {
		e.breaker = cb
	}
}

// WithRateLimiter adds a rate limiter to the executor.
func WithRateLimiter(rl *ratelimit.Limiter) Option {
	return func(e *Executor) {
		e.limiter = rl
	}
}

// WithBulkhead adds concurrency bounding to the executor.
func WithBulkhead(b *bulkhead.Bulkhead) Option {
	return func(e *Executor) {
		e.bulk = b
	}
}

// Execute runs op through the configured primitives, outermost first:
// rate limiter, then bulkhead, then circuit breaker. The operation's
// duration is measured and reported to the breaker via OnSuccess/OnError.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e.limiter != nil && !e.limiter.AcquirePermission(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ratelimit.ErrPermissionDenied
	}

	if e.bulk != nil {
		if err := e.bulk.Acquire(ctx); err != nil {
			return err
		}
		defer e.bulk.Release()
	}

	if e.breaker == nil {
		return op(ctx)
	}

	if err := e.breaker.AcquirePermission(); err != nil {
		return err
	}

	start := time.Now()
	err := op(ctx)
	duration := time.Since(start)

	if err != nil {
		e.breaker.OnError(duration, err)
	} else {
		e.breaker.OnSuccess(duration)
	}
	return err
}
