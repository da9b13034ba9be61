package events

import (
	"errors"
	"sync"
)

// ErrInvalidCapacity is returned when a RingLog is constructed with a
// non-positive capacity.
var ErrInvalidCapacity = errors.New("events: ring log capacity must be positive")

// RingLog is a bounded circular event buffer. Once full, each new event
// overwrites the oldest one, so memory stays fixed at the construction
// capacity regardless of feed volume.
type RingLog struct {
	mu     sync.Mutex
	buf    []Event
	head   int // next write position
	filled int // number of live entries, up to len(buf)
}

// NewRingLog creates a ring log holding the most recent capacity events.
func NewRingLog(capacity int) (*RingLog, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &RingLog{buf: make([]Event, capacity)}, nil
}

// Consume stores e, evicting the oldest entry when the buffer is full.
func (r *RingLog) Consume(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.filled < len(r.buf) {
		r.filled++
	}
}

// Events returns the buffered events, oldest first.
func (r *RingLog) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0, r.filled)
	start := r.head - r.filled
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.filled; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Len returns the number of buffered events.
func (r *RingLog) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filled
}

// Capacity returns the fixed buffer capacity.
func (r *RingLog) Capacity() int {
	return len(r.buf)
}

// Ensure RingLog implements Consumer.
var _ Consumer = (*RingLog)(nil)
