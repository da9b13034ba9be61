package circuit

import (
	"sync/atomic"
	"time"

	"github.com/jonwraymond/breakwater/events"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally and outcomes are recorded.
	StateClosed State = iota
	// StateOpen means calls are denied until the open wait elapses.
	StateOpen
	// StateHalfOpen means a bounded budget of probe calls is permitted.
	StateHalfOpen
	// StateDisabled means calls always flow and nothing is recorded.
	StateDisabled
	// StateForcedOpen means calls are always denied and nothing is recorded.
	StateForcedOpen
	// StateMetricsOnly means calls always flow and outcomes are recorded,
	// but thresholds never trip the breaker.
	StateMetricsOnly
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	case StateDisabled:
		return "disabled"
	case StateForcedOpen:
		return "forced-open"
	case StateMetricsOnly:
		return "metrics-only"
	default:
		return "unknown"
	}
}

// fsm is the live {state, metrics holder, timestamp, half-open budget}
// tuple. Values are immutable once published; every update builds a new fsm
// and installs it with a compare-and-swap, which makes transitions
// linearizable without a lock on the hot path.
type fsm struct {
	state     State
	window    *Window // nil in open, disabled, and forced-open
	enteredAt time.Time

	// halfOpenLeft is the remaining probe budget; meaningful only in
	// half-open. Decremented by CAS-replacing the whole tuple.
	halfOpenLeft int

	// openPeriods counts consecutive open entries since the breaker last
	// closed. Feeds the WaitDurationFn backoff hook.
	openPeriods int
}

// CircuitBreaker is a six-state circuit breaker with a fixed-memory
// sliding-window outcome buffer. All methods are safe for concurrent use;
// none of them block.
type CircuitBreaker struct {
	config Config
	cur    atomic.Pointer[fsm]
}

// New creates a circuit breaker in the closed state.
func New(config Config) (*CircuitBreaker, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	w, err := NewWindow(config.WindowSize)
	if err != nil {
		return nil, err
	}

	cb := &CircuitBreaker{config: config}
	cb.cur.Store(&fsm{state: StateClosed, window: w, enteredAt: time.Now()})
	return cb, nil
}

// Name returns the configured breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	return cb.cur.Load().state
}

// Metrics returns the current window snapshot. In states without a window
// (open, disabled, forced-open) the counts are zero and the rates are
// RateUnavailable.
func (cb *CircuitBreaker) Metrics() Metrics {
	cur := cb.cur.Load()
	if cur.window == nil {
		return Metrics{FailureRate: RateUnavailable, SlowCallRate: RateUnavailable}
	}
	return cur.window.Metrics()
}

// AcquirePermission reports whether a call may proceed. A nil return grants
// permission; otherwise the returned *PermissionError unwraps to
// ErrCallNotPermitted. In the open state, once the wait has elapsed the
// breaker moves to half-open and the call is re-evaluated under half-open
// rules.
func (cb *CircuitBreaker) AcquirePermission() error {
	for {
		cur := cb.cur.Load()

		switch cur.state {
		case StateClosed, StateDisabled, StateMetricsOnly:
			return nil

		case StateForcedOpen:
			return &PermissionError{Name: cb.config.Name, State: StateForcedOpen, Reason: "breaker is forced open"}

		case StateOpen:
			if time.Since(cur.enteredAt) < cb.config.waitDuration(cur.openPeriods) {
				return &PermissionError{Name: cb.config.Name, State: StateOpen, Reason: "open wait has not elapsed"}
			}
			cb.tryTransition(cur, StateHalfOpen)
			// Re-evaluate under the winning state, ours or a racer's.
			continue

		case StateHalfOpen:
			if cur.halfOpenLeft <= 0 {
				return &PermissionError{Name: cb.config.Name, State: StateHalfOpen, Reason: "no probe permits remaining"}
			}
			next := *cur
			next.halfOpenLeft--
			if cb.cur.CompareAndSwap(cur, &next) {
				return nil
			}
			// Lost the race for a permit, retry.
		}
	}
}

// OnSuccess records a successful call with its measured duration.
func (cb *CircuitBreaker) OnSuccess(duration time.Duration) {
	cb.record(duration, false, nil)
}

// OnError reports a failed call. The ShouldRecord classifier decides
// whether err counts toward the failure rate; an ignored error is recorded
// as a success for bookkeeping (it still counts toward the slow-call rate
// when the duration breaches the threshold).
func (cb *CircuitBreaker) OnError(duration time.Duration, err error) {
	cb.record(duration, cb.classify(err), err)
}

// classify runs the failure classifier, treating a panic as "record as
// failure" so a broken classifier can never suppress tripping.
func (cb *CircuitBreaker) classify(err error) (record bool) {
	defer func() {
		if recover() != nil {
			record = true
		}
	}()
	return cb.config.ShouldRecord(err)
}

func (cb *CircuitBreaker) record(duration time.Duration, failed bool, err error) {
	cur := cb.cur.Load()

	switch cur.state {
	case StateDisabled, StateForcedOpen:
		return
	case StateOpen:
		// Late result from a call permitted before the breaker opened.
		// Nothing to record, but still worth surfacing on the feed.
		cb.publishOutcome(duration, failed, err)
		return
	}

	slow := duration > cb.config.SlowCallDurationThreshold

	// The window snapshot returned by Record is the post-insert state, so
	// the threshold evaluation below sees exactly the insertion it made.
	m := cur.window.Record(failed, slow)

	cb.publishOutcome(duration, failed, err)
	if slow {
		cb.publish(events.Event{Kind: events.KindSlowCallRecorded, Duration: duration})
	}

	switch cur.state {
	case StateClosed:
		if m.NumberOfCalls == cur.window.Capacity() && cb.thresholdBreached(m) {
			cb.tryTransition(cur, StateOpen)
		}
	case StateHalfOpen:
		if m.NumberOfCalls >= cur.window.Capacity() {
			if cb.thresholdBreached(m) {
				cb.tryTransition(cur, StateOpen)
			} else {
				cb.tryTransition(cur, StateClosed)
			}
		}
	}
	// Metrics-only never transitions.
}

func (cb *CircuitBreaker) publishOutcome(duration time.Duration, failed bool, err error) {
	switch {
	case failed:
		cb.publish(events.Event{Kind: events.KindErrorRecorded, Duration: duration, Err: err})
	case err != nil:
		cb.publish(events.Event{Kind: events.KindErrorIgnored, Duration: duration, Err: err})
	default:
		cb.publish(events.Event{Kind: events.KindSuccessRecorded, Duration: duration})
	}
}

func (cb *CircuitBreaker) thresholdBreached(m Metrics) bool {
	if m.FailureRate != RateUnavailable && m.FailureRate >= cb.config.FailureRateThreshold {
		return true
	}
	return m.SlowCallRate != RateUnavailable && m.SlowCallRate >= cb.config.SlowCallRateThreshold
}

// TransitionToClosed moves the breaker to the closed state. Like every
// explicit transition it always succeeds from any state and is idempotent:
// re-entering the current state only refreshes the transition timestamp and
// keeps the existing window.
func (cb *CircuitBreaker) TransitionToClosed() { cb.transition(StateClosed) }

// TransitionToOpen moves the breaker to the open state.
func (cb *CircuitBreaker) TransitionToOpen() { cb.transition(StateOpen) }

// TransitionToHalfOpen moves the breaker to the half-open state with a
// fresh probe budget.
func (cb *CircuitBreaker) TransitionToHalfOpen() { cb.transition(StateHalfOpen) }

// TransitionToDisabled moves the breaker to the disabled state: every call
// is permitted and nothing is recorded.
func (cb *CircuitBreaker) TransitionToDisabled() { cb.transition(StateDisabled) }

// TransitionToForcedOpen moves the breaker to the forced-open state: every
// call is denied and nothing is recorded.
func (cb *CircuitBreaker) TransitionToForcedOpen() { cb.transition(StateForcedOpen) }

// TransitionToMetricsOnly moves the breaker to the metrics-only state:
// outcomes are recorded but thresholds never trip.
func (cb *CircuitBreaker) TransitionToMetricsOnly() { cb.transition(StateMetricsOnly) }

// Reset unconditionally installs the closed state with an empty window,
// discarding all prior metrics.
func (cb *CircuitBreaker) Reset() {
	for {
		cur := cb.cur.Load()
		w, _ := NewWindow(cb.config.WindowSize) // capacity validated at construction
		next := &fsm{state: StateClosed, window: w, enteredAt: time.Now()}
		if cb.cur.CompareAndSwap(cur, next) {
			if cur.state != StateClosed {
				cb.publishTransition(cur.state, StateClosed)
			}
			return
		}
	}
}

// transition is the explicit-transition CAS loop. It always succeeds.
func (cb *CircuitBreaker) transition(target State) {
	for {
		cur := cb.cur.Load()
		next := cb.nextFSM(cur, target)
		if cb.cur.CompareAndSwap(cur, next) {
			if cur.state != target {
				cb.afterTransition(cur.state, next)
			}
			return
		}
	}
}

// tryTransition attempts a single automatic transition from the observed
// tuple. A failed CAS means a concurrent update won and the transition is
// abandoned, which keeps outcome-driven transitions linearizable.
func (cb *CircuitBreaker) tryTransition(cur *fsm, target State) bool {
	next := cb.nextFSM(cur, target)
	if !cb.cur.CompareAndSwap(cur, next) {
		return false
	}
	cb.afterTransition(cur.state, next)
	return true
}

// nextFSM builds the successor tuple for a transition to target.
func (cb *CircuitBreaker) nextFSM(cur *fsm, target State) *fsm {
	if cur.state == target {
		// Idempotent re-entry: refresh the timestamp only.
		next := *cur
		next.enteredAt = time.Now()
		return &next
	}

	next := &fsm{state: target, enteredAt: time.Now()}
	switch target {
	case StateClosed, StateMetricsOnly:
		next.window, _ = NewWindow(cb.config.WindowSize)
	case StateHalfOpen:
		next.window, _ = NewWindow(cb.config.HalfOpenWindowSize)
		next.halfOpenLeft = cb.config.HalfOpenWindowSize
		next.openPeriods = cur.openPeriods
	case StateOpen:
		next.openPeriods = cur.openPeriods + 1
	}
	return next
}

// afterTransition publishes the transition event and, when entering the
// open state with the automatic transition enabled, schedules the move to
// half-open.
func (cb *CircuitBreaker) afterTransition(from State, installed *fsm) {
	cb.publishTransition(from, installed.state)

	if installed.state == StateOpen && cb.config.AutomaticTransitionFromOpenToHalfOpen {
		wait := cb.config.waitDuration(installed.openPeriods)
		time.AfterFunc(wait, func() {
			// Only fire if this exact open period is still live.
			if cb.cur.Load() == installed {
				cb.tryTransition(installed, StateHalfOpen)
			}
		})
	}
}

func (cb *CircuitBreaker) publishTransition(from, to State) {
	cb.publish(events.Event{Kind: events.KindStateTransition, From: from.String(), To: to.String()})
}

func (cb *CircuitBreaker) publish(e events.Event) {
	if cb.config.Feed == nil {
		return
	}
	e.Source = cb.config.Name
	cb.config.Feed.Publish(e)
}
