package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jonwraymond/breakwater/events"
)

// Config configures the rate limiter.
type Config struct {
	// Name identifies the limiter in events.
	// Default: "ratelimit"
	Name string

	// LimitForPeriod is the number of permits granted per refresh cycle.
	// Default: 50
	LimitForPeriod int

	// LimitRefreshPeriod is the cycle duration.
	// Default: 500 nanoseconds
	LimitRefreshPeriod time.Duration

	// TimeoutDuration is the longest wait a caller tolerates for a permit.
	// Default: 0 (deny instead of waiting)
	TimeoutDuration time.Duration

	// Feed receives granted/denied acquisition events. Optional.
	Feed *events.Feed
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "ratelimit"
	}
	if c.LimitForPeriod == 0 {
		c.LimitForPeriod = 50
	}
	if c.LimitRefreshPeriod == 0 {
		c.LimitRefreshPeriod = 500 * time.Nanosecond
	}
	return c
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.LimitForPeriod, validation.Min(1)),
		validation.Field(&c.LimitRefreshPeriod, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&c.TimeoutDuration, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// snapshot is the limiter's entire mutable state: the cycle the last
// computation ran in, the signed permit balance (negative means permits are
// reserved ahead of their cycle), and the wait the last reservation owed.
// Snapshots are immutable; updates install a new one by CAS.
type snapshot struct {
	cycle       int64
	permits     int64
	nanosToWait int64
}

// limits is the live configuration read at the start of each computation.
// Reconfiguration swaps this reference wholesale; a computation that reads a
// mix of old state and new limits is an accepted benign race.
type limits struct {
	limitForPeriod int64
	periodNanos    int64
	timeoutNanos   int64
}

// Metrics contains rate limiter statistics.
type Metrics struct {
	// AvailablePermissions is the permit balance the next caller would see;
	// negative when permits are oversubscribed into future cycles.
	AvailablePermissions int
	// WaitingCallers is the number of goroutines currently sleeping inside
	// AcquirePermission.
	WaitingCallers int
}

// Limiter grants or defers call permission against a per-cycle permit
// budget. All methods are safe for concurrent use; AcquirePermission is the
// only one that can block.
type Limiter struct {
	name    string
	start   time.Time
	state   atomic.Pointer[snapshot]
	lim     atomic.Pointer[limits]
	waiting atomic.Int64
	feed    *events.Feed
}

// New creates a rate limiter with a full first-cycle permit budget.
func New(config Config) (*Limiter, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		name:  config.Name,
		start: time.Now(),
		feed:  config.Feed,
	}
	l.lim.Store(&limits{
		limitForPeriod: int64(config.LimitForPeriod),
		periodNanos:    config.LimitRefreshPeriod.Nanoseconds(),
		timeoutNanos:   config.TimeoutDuration.Nanoseconds(),
	})
	l.state.Store(&snapshot{permits: int64(config.LimitForPeriod)})
	return l, nil
}

// Name returns the configured limiter name.
func (l *Limiter) Name() string {
	return l.name
}

// AcquirePermission reserves a permit and waits out any owed delay. It
// returns false without consuming capacity when the owed wait exceeds the
// configured timeout or ctx is canceled during the wait; both paths refund
// the optimistic reservation internally.
func (l *Limiter) AcquirePermission(ctx context.Context) bool {
	lim := l.lim.Load()
	wait := l.ReservePermission()

	if wait.Nanoseconds() > lim.timeoutNanos {
		l.ReleasePermission()
		l.publish(events.KindPermitDenied, wait)
		return false
	}

	if wait > 0 {
		l.waiting.Add(1)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.waiting.Add(-1)
			l.ReleasePermission()
			l.publish(events.KindPermitDenied, wait)
			return false
		case <-timer.C:
			l.waiting.Add(-1)
		}
	}

	l.publish(events.KindPermitGranted, wait)
	return true
}

// ReservePermission unconditionally reserves one permit and returns the
// wait the caller owes before using it, zero when a permit is free in the
// current cycle. The caller owns the reservation: refund it with
// ReleasePermission if it goes unused, or capacity is permanently lost.
func (l *Limiter) ReservePermission() time.Duration {
	next := l.update(1)
	return time.Duration(next.nanosToWait)
}

// ReleasePermission refunds one reserved permit, capped at LimitForPeriod.
func (l *Limiter) ReleasePermission() {
	l.update(-1)
}

// DrainPermissions zeroes the current cycle's remaining balance, so the
// next permit is owed to a future cycle. A negative (oversubscribed)
// balance is left untouched.
func (l *Limiter) DrainPermissions() {
	for {
		lim := l.lim.Load()
		cur := l.state.Load()
		refreshed := l.next(lim, cur, 0)
		if refreshed.permits > 0 {
			refreshed.permits = 0
		}
		if l.state.CompareAndSwap(cur, &refreshed) {
			return
		}
	}
}

// Metrics returns current limiter statistics. AvailablePermissions is a
// point-in-time recomputation that does not consume a permit.
func (l *Limiter) Metrics() Metrics {
	lim := l.lim.Load()
	cur := l.state.Load()
	refreshed := l.next(lim, cur, 0)
	return Metrics{
		AvailablePermissions: int(refreshed.permits),
		WaitingCallers:       int(l.waiting.Load()),
	}
}

// ChangeLimitForPeriod swaps the per-cycle permit budget. In-flight
// computations keep the limits reference they already read.
func (l *Limiter) ChangeLimitForPeriod(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: limit for period must be positive, got %d", ErrInvalidConfiguration, n)
	}
	for {
		cur := l.lim.Load()
		next := *cur
		next.limitForPeriod = int64(n)
		if l.lim.CompareAndSwap(cur, &next) {
			return nil
		}
	}
}

// ChangeTimeoutDuration swaps the acquisition timeout.
func (l *Limiter) ChangeTimeoutDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: timeout duration must be non-negative, got %v", ErrInvalidConfiguration, d)
	}
	for {
		cur := l.lim.Load()
		next := *cur
		next.timeoutNanos = d.Nanoseconds()
		if l.lim.CompareAndSwap(cur, &next) {
			return nil
		}
	}
}

// update runs the CAS retry loop with the given permit delta (+1 reserve,
// -1 refund) and returns the installed snapshot.
func (l *Limiter) update(take int64) snapshot {
	for {
		lim := l.lim.Load()
		cur := l.state.Load()
		next := l.next(lim, cur, take)
		if l.state.CompareAndSwap(cur, &next) {
			return next
		}
	}
}

// next computes the candidate snapshot: refresh the balance for elapsed
// cycles (capped at one cycle's budget; idle periods never bank more),
// apply the permit delta, and derive the wait owed when the balance went
// negative.
func (l *Limiter) next(lim *limits, cur *snapshot, take int64) snapshot {
	now := time.Since(l.start).Nanoseconds()
	cycle := now / lim.periodNanos

	permits := cur.permits
	if cycle > cur.cycle {
		accumulated := permits + (cycle-cur.cycle)*lim.limitForPeriod
		permits = min(lim.limitForPeriod, accumulated)
	}

	permits -= take
	if permits > lim.limitForPeriod {
		// Over-refund clamp; keeps ReleasePermission from banking permits.
		permits = lim.limitForPeriod
	}

	var wait int64
	if permits < 0 {
		cyclesNeeded := (-permits + lim.limitForPeriod - 1) / lim.limitForPeriod
		nextRefresh := (cycle + 1) * lim.periodNanos
		wait = nextRefresh + (cyclesNeeded-1)*lim.periodNanos - now
	}

	return snapshot{cycle: cycle, permits: permits, nanosToWait: wait}
}

func (l *Limiter) publish(kind events.Kind, wait time.Duration) {
	if l.feed == nil {
		return
	}
	l.feed.Publish(events.Event{Kind: kind, Source: l.name, Duration: wait})
}
