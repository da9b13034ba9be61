// Package bulkhead limits concurrent operations to prevent resource
// exhaustion. It is the third classic resilience primitive next to the
// circuit breaker and rate limiter: where those bound failures and
// throughput, the bulkhead bounds in-flight concurrency.
package bulkhead

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Sentinel errors for bulkhead operations.
var (
	// ErrFull is returned when no slot becomes available within MaxWait.
	ErrFull = errors.New("bulkhead: at capacity")

	// ErrInvalidConfiguration is returned for a non-positive capacity.
	ErrInvalidConfiguration = errors.New("bulkhead: invalid configuration")
)

// Config configures the bulkhead.
type Config struct {
	// MaxConcurrent is the maximum number of concurrent operations.
	// Default: 25
	MaxConcurrent int

	// MaxWait is the maximum time to wait for a slot.
	// Default: 0 (no waiting, fail immediately)
	MaxWait time.Duration
}

// Bulkhead bounds concurrent in-flight operations with a weighted
// semaphore.
type Bulkhead struct {
	config   Config
	sem      *semaphore.Weighted
	active   atomic.Int64
	rejected atomic.Int64
}

// New creates a new bulkhead.
func New(config Config) (*Bulkhead, error) {
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 25
	}
	if config.MaxConcurrent < 0 {
		return nil, fmt.Errorf("%w: max concurrent must be positive, got %d", ErrInvalidConfiguration, config.MaxConcurrent)
	}

	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}, nil
}

// Acquire claims a slot, waiting up to MaxWait. Returns ErrFull when no
// slot frees up in time, or ctx.Err() on cancellation.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		b.active.Add(1)
		return nil
	}

	if b.config.MaxWait <= 0 {
		b.rejected.Add(1)
		return ErrFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		b.rejected.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrFull
	}
	b.active.Add(1)
	return nil
}

// Release returns a slot claimed by Acquire.
func (b *Bulkhead) Release() {
	b.active.Add(-1)
	b.sem.Release(1)
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

// Metrics contains bulkhead statistics.
type Metrics struct {
	Active        int
	MaxConcurrent int
	Rejected      int64
}

// Metrics returns current bulkhead statistics.
func (b *Bulkhead) Metrics() Metrics {
	return Metrics{
		Active:        int(b.active.Load()),
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected.Load(),
	}
}
