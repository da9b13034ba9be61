package circuit

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jonwraymond/breakwater/events"
)

// Config configures a circuit breaker.
type Config struct {
	// Name identifies the breaker in events and errors.
	// Default: "circuit"
	Name string

	// FailureRateThreshold is the failure percentage (0-100] at or above
	// which a full window trips the breaker open.
	// Default: 50
	FailureRateThreshold float64

	// SlowCallRateThreshold is the slow-call percentage (0-100] at or above
	// which a full window trips the breaker open.
	// Default: 100 (only an all-slow window trips)
	SlowCallRateThreshold float64

	// SlowCallDurationThreshold classifies a call as slow when its duration
	// exceeds this value.
	// Default: 60 seconds
	SlowCallDurationThreshold time.Duration

	// WindowSize is the sliding-window capacity in the closed and
	// metrics-only states. Rates are unavailable until this many calls have
	// been recorded, so it doubles as the minimum number of calls before the
	// breaker can trip.
	// Default: 100
	WindowSize int

	// HalfOpenWindowSize is both the probe-call budget and the window
	// capacity in the half-open state.
	// Default: 10
	HalfOpenWindowSize int

	// WaitDurationInOpenState is how long the open state denies calls before
	// a probe transition to half-open is allowed.
	// Default: 60 seconds
	WaitDurationInOpenState time.Duration

	// WaitDurationFn overrides WaitDurationInOpenState when set. It receives
	// the number of consecutive open periods since the breaker last closed,
	// starting at 1, and returns the wait for that period. Use it for
	// backoff across repeated failed half-open trials.
	WaitDurationFn func(openPeriods int) time.Duration

	// AutomaticTransitionFromOpenToHalfOpen schedules the open-to-half-open
	// transition on a timer instead of waiting for the next
	// AcquirePermission call.
	// Default: false
	AutomaticTransitionFromOpenToHalfOpen bool

	// ShouldRecord decides whether an error reported via OnError counts
	// toward the failure rate. Returning false records the call as a
	// success for bookkeeping. A panicking classifier is treated as
	// "record as failure".
	// Default: all non-nil errors are recorded.
	ShouldRecord func(err error) bool

	// Feed receives state transitions and recorded outcomes. Optional.
	Feed *events.Feed
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "circuit"
	}
	if c.FailureRateThreshold == 0 {
		c.FailureRateThreshold = 50
	}
	if c.SlowCallRateThreshold == 0 {
		c.SlowCallRateThreshold = 100
	}
	if c.SlowCallDurationThreshold == 0 {
		c.SlowCallDurationThreshold = 60 * time.Second
	}
	if c.WindowSize == 0 {
		c.WindowSize = 100
	}
	if c.HalfOpenWindowSize == 0 {
		c.HalfOpenWindowSize = 10
	}
	if c.WaitDurationInOpenState == 0 {
		c.WaitDurationInOpenState = 60 * time.Second
	}
	if c.ShouldRecord == nil {
		c.ShouldRecord = func(err error) bool { return err != nil }
	}
	return c
}

// Validate checks the configuration ranges. Called by New after defaults
// are applied; exported so external loaders can validate early.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.FailureRateThreshold, validation.Min(0.0).Exclusive(), validation.Max(100.0)),
		validation.Field(&c.SlowCallRateThreshold, validation.Min(0.0).Exclusive(), validation.Max(100.0)),
		validation.Field(&c.SlowCallDurationThreshold, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&c.WindowSize, validation.Min(1)),
		validation.Field(&c.HalfOpenWindowSize, validation.Min(1)),
		validation.Field(&c.WaitDurationInOpenState, validation.Min(time.Duration(0)).Exclusive()),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// waitDuration returns the open-state wait for the given consecutive open
// period count.
func (c Config) waitDuration(openPeriods int) time.Duration {
	if c.WaitDurationFn != nil {
		return c.WaitDurationFn(openPeriods)
	}
	return c.WaitDurationInOpenState
}
