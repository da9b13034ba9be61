package events

import (
	"sync"
	"time"
)

// Kind identifies the type of a resilience event.
type Kind int

const (
	// KindStateTransition is emitted when a circuit breaker changes state.
	KindStateTransition Kind = iota
	// KindSuccessRecorded is emitted when a successful call is recorded.
	KindSuccessRecorded
	// KindErrorRecorded is emitted when a failed call is recorded.
	KindErrorRecorded
	// KindErrorIgnored is emitted when the failure classifier decides an
	// error does not count toward the failure rate.
	KindErrorIgnored
	// KindSlowCallRecorded is emitted when a recorded call exceeded the
	// slow-call duration threshold.
	KindSlowCallRecorded
	// KindPermitGranted is emitted when a rate limiter grants permission.
	KindPermitGranted
	// KindPermitDenied is emitted when a rate limiter denies permission.
	KindPermitDenied
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindStateTransition:
		return "state-transition"
	case KindSuccessRecorded:
		return "success-recorded"
	case KindErrorRecorded:
		return "error-recorded"
	case KindErrorIgnored:
		return "error-ignored"
	case KindSlowCallRecorded:
		return "slow-call-recorded"
	case KindPermitGranted:
		return "permit-granted"
	case KindPermitDenied:
		return "permit-denied"
	default:
		return "unknown"
	}
}

// Event describes a single occurrence inside a resilience primitive.
// Fields other than Kind, Source, and Time are populated only where they
// apply: From/To on state transitions, Duration on recorded calls, Err on
// recorded or ignored errors.
type Event struct {
	Kind     Kind
	Source   string
	Time     time.Time
	From     string
	To       string
	Duration time.Duration
	Err      error
}

// Consumer receives events from a Feed.
//
// Contract:
// - Concurrency: Consume may be called from any goroutine, one call at a time.
// - Errors: Consume must be best-effort and must not panic.
type Consumer interface {
	Consume(e Event)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(e Event)

// Consume calls f(e).
func (f ConsumerFunc) Consume(e Event) { f(e) }

// Feed is an ordered fan-out of events to subscribed consumers.
// Delivery order matches publish order for every subscriber.
type Feed struct {
	mu        sync.Mutex
	consumers []Consumer
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe registers a consumer. Already-published events are not replayed;
// attach a RingLog at construction time if history is needed.
func (f *Feed) Subscribe(c Consumer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumers = append(f.consumers, c)
}

// Publish delivers e to every subscriber in subscription order. The mutex
// spans the whole delivery walk so concurrent publishers observe a total
// order of events.
func (f *Feed) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.consumers {
		c.Consume(e)
	}
}

// Subscribers returns the current number of subscribed consumers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.consumers)
}
