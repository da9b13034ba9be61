package circuit

import (
	"fmt"
	"sync"
)

// RateUnavailable is the sentinel returned by rate queries until the window
// has recorded a full capacity of calls.
const RateUnavailable = float64(-1)

// Metrics is a consistent point-in-time snapshot of a window.
// FailureRate and SlowCallRate are percentages in [0, 100], or
// RateUnavailable while NumberOfCalls < the window capacity.
type Metrics struct {
	FailureRate         float64
	SlowCallRate        float64
	NumberOfCalls       int
	NumberOfFailedCalls int
	NumberOfSlowCalls   int
}

// Window is a fixed-capacity circular record of call outcomes. Each recorded
// call occupies one slot holding two bits: failed and slow. Both bit
// sequences are packed into uint64 words, so a window of N calls costs
// 2*ceil(N/64) words regardless of call volume. Failure and slow-call rates
// are maintained incrementally and cost O(1) to read.
type Window struct {
	mu       sync.Mutex
	capacity int
	failure  []uint64
	slow     []uint64
	cursor   int
	total    int
	failed   int
	slowHits int
}

// NewWindow creates a window recording the most recent capacity calls.
func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: window capacity must be positive, got %d", ErrInvalidConfiguration, capacity)
	}
	words := (capacity + 63) / 64
	return &Window{
		capacity: capacity,
		failure:  make([]uint64, words),
		slow:     make([]uint64, words),
	}, nil
}

// Capacity returns the fixed window capacity.
func (w *Window) Capacity() int {
	return w.capacity
}

// Record stores one call outcome, evicting the oldest slot once the window
// is full, and returns the post-insert snapshot. The cursor advance, the bit
// overwrite, and all three counter adjustments happen under one critical
// section, so a reader never sees a failed-count update without the matching
// total-count update.
func (w *Window) Record(failed, slow bool) Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()

	word := uint(w.cursor / 64)
	bit := uint64(1) << uint(w.cursor%64)

	if w.total == w.capacity {
		// Evict: subtract the bits being overwritten.
		if w.failure[word]&bit != 0 {
			w.failed--
		}
		if w.slow[word]&bit != 0 {
			w.slowHits--
		}
	} else {
		w.total++
	}

	if failed {
		w.failure[word] |= bit
		w.failed++
	} else {
		w.failure[word] &^= bit
	}
	if slow {
		w.slow[word] |= bit
		w.slowHits++
	} else {
		w.slow[word] &^= bit
	}

	w.cursor = (w.cursor + 1) % w.capacity

	return w.snapshotLocked()
}

// Metrics returns the current snapshot.
func (w *Window) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// FailureRate returns the failure percentage, or RateUnavailable until the
// window has filled.
func (w *Window) FailureRate() float64 {
	return w.Metrics().FailureRate
}

// SlowCallRate returns the slow-call percentage, or RateUnavailable until
// the window has filled.
func (w *Window) SlowCallRate() float64 {
	return w.Metrics().SlowCallRate
}

// Reset clears all bits and counters back to the empty state.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.failure)
	clear(w.slow)
	w.cursor = 0
	w.total = 0
	w.failed = 0
	w.slowHits = 0
}

// snapshotLocked builds a Metrics value. Must be called with w.mu held.
func (w *Window) snapshotLocked() Metrics {
	m := Metrics{
		FailureRate:         RateUnavailable,
		SlowCallRate:        RateUnavailable,
		NumberOfCalls:       w.total,
		NumberOfFailedCalls: w.failed,
		NumberOfSlowCalls:   w.slowHits,
	}
	if w.total == w.capacity {
		m.FailureRate = float64(w.failed) * 100 / float64(w.total)
		m.SlowCallRate = float64(w.slowHits) * 100 / float64(w.total)
	}
	return m
}
