// Package circuit implements a sliding-window circuit breaker.
//
// The breaker is a six-state machine. Closed is normal operation: every call
// is permitted and its outcome lands in a fixed-capacity ring bit buffer.
// Once the window is full and the failure rate or slow-call rate reaches its
// threshold, the breaker opens and denies calls until a configured wait
// elapses, after which a half-open probe phase permits a bounded budget of
// trial calls and either closes the breaker or re-opens it. Three special
// states exist for operations: disabled (always permit, record nothing),
// forced-open (always deny), and metrics-only (record but never trip).
//
// The live state tuple is published through a single atomic reference and
// every update is a compare-and-swap of an immutable value, so permission
// checks, outcome recording, and transitions are linearizable without a
// lock on the hot path. The outcome window packs failure and slow bits into
// uint64 words, keeping memory fixed at two bits per window slot.
//
// # Usage
//
//	cb, err := circuit.New(circuit.Config{
//	    Name:                 "billing",
//	    FailureRateThreshold: 50,
//	    WindowSize:           100,
//	    WaitDurationInOpenState: 30 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := cb.AcquirePermission(); err != nil {
//	    return err // unwraps to circuit.ErrCallNotPermitted
//	}
//	start := time.Now()
//	err = callBackend(ctx)
//	if err != nil {
//	    cb.OnError(time.Since(start), err)
//	} else {
//	    cb.OnSuccess(time.Since(start))
//	}
//
// The guard package wires this sequence up as a reusable decorator.
package circuit
