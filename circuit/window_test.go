package circuit

import (
	"errors"
	"sync"
	"testing"
)

func TestNewWindow_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		_, err := NewWindow(capacity)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("NewWindow(%d) error = %v, want ErrInvalidConfiguration", capacity, err)
		}
	}
}

func TestWindow_RatesUnavailableUntilFull(t *testing.T) {
	w, err := NewWindow(10)
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}

	// 9 failures: window not yet full, rates must be unavailable.
	for i := 0; i < 9; i++ {
		w.Record(true, false)
	}

	if got := w.FailureRate(); got != RateUnavailable {
		t.Errorf("FailureRate() after 9/10 calls = %v, want RateUnavailable", got)
	}
	if got := w.SlowCallRate(); got != RateUnavailable {
		t.Errorf("SlowCallRate() after 9/10 calls = %v, want RateUnavailable", got)
	}

	m := w.Record(true, false)
	if m.FailureRate != 100 {
		t.Errorf("FailureRate() after 10/10 failures = %v, want 100", m.FailureRate)
	}
}

func TestWindow_FailureRate(t *testing.T) {
	w, _ := NewWindow(10)

	for i := 0; i < 5; i++ {
		w.Record(true, false)
	}
	for i := 0; i < 5; i++ {
		w.Record(false, false)
	}

	if got := w.FailureRate(); got != 50 {
		t.Errorf("FailureRate() = %v, want 50", got)
	}

	m := w.Metrics()
	if m.NumberOfCalls != 10 {
		t.Errorf("NumberOfCalls = %d, want 10", m.NumberOfCalls)
	}
	if m.NumberOfFailedCalls != 5 {
		t.Errorf("NumberOfFailedCalls = %d, want 5", m.NumberOfFailedCalls)
	}
}

func TestWindow_Eviction(t *testing.T) {
	w, _ := NewWindow(4)

	// Fill with failures, then push successes through: each success evicts
	// one failure.
	for i := 0; i < 4; i++ {
		w.Record(true, true)
	}
	if got := w.FailureRate(); got != 100 {
		t.Fatalf("FailureRate() = %v, want 100", got)
	}

	tests := []struct {
		wantFailed int
		wantRate   float64
	}{
		{3, 75},
		{2, 50},
		{1, 25},
		{0, 0},
	}
	for i, tt := range tests {
		m := w.Record(false, false)
		if m.NumberOfFailedCalls != tt.wantFailed {
			t.Errorf("after %d evictions, NumberOfFailedCalls = %d, want %d", i+1, m.NumberOfFailedCalls, tt.wantFailed)
		}
		if m.FailureRate != tt.wantRate {
			t.Errorf("after %d evictions, FailureRate = %v, want %v", i+1, m.FailureRate, tt.wantRate)
		}
		if m.NumberOfCalls != 4 {
			t.Errorf("NumberOfCalls = %d, want 4 (saturated)", m.NumberOfCalls)
		}
	}
}

func TestWindow_SlowBitsIndependent(t *testing.T) {
	w, _ := NewWindow(4)

	// Slow successes and fast failures: the two bit sequences must not
	// interfere.
	w.Record(false, true)
	w.Record(false, true)
	w.Record(true, false)
	m := w.Record(true, false)

	if m.SlowCallRate != 50 {
		t.Errorf("SlowCallRate = %v, want 50", m.SlowCallRate)
	}
	if m.FailureRate != 50 {
		t.Errorf("FailureRate = %v, want 50", m.FailureRate)
	}
	if m.NumberOfSlowCalls != 2 {
		t.Errorf("NumberOfSlowCalls = %d, want 2", m.NumberOfSlowCalls)
	}
}

func TestWindow_LargeCapacityCrossesWordBoundary(t *testing.T) {
	// 130 slots spans three uint64 words.
	w, _ := NewWindow(130)

	for i := 0; i < 130; i++ {
		w.Record(i%2 == 0, false)
	}

	m := w.Metrics()
	if m.NumberOfFailedCalls != 65 {
		t.Errorf("NumberOfFailedCalls = %d, want 65", m.NumberOfFailedCalls)
	}

	// Wrap around a full extra lap and verify counters still agree with
	// the live bits.
	for i := 0; i < 130; i++ {
		w.Record(false, true)
	}
	m = w.Metrics()
	if m.NumberOfFailedCalls != 0 {
		t.Errorf("after lap, NumberOfFailedCalls = %d, want 0", m.NumberOfFailedCalls)
	}
	if m.NumberOfSlowCalls != 130 {
		t.Errorf("after lap, NumberOfSlowCalls = %d, want 130", m.NumberOfSlowCalls)
	}
}

func TestWindow_Reset(t *testing.T) {
	w, _ := NewWindow(8)

	for i := 0; i < 8; i++ {
		w.Record(true, true)
	}
	w.Reset()

	m := w.Metrics()
	if m.NumberOfCalls != 0 || m.NumberOfFailedCalls != 0 || m.NumberOfSlowCalls != 0 {
		t.Errorf("after Reset, Metrics = %+v, want all zero", m)
	}
	if m.FailureRate != RateUnavailable {
		t.Errorf("after Reset, FailureRate = %v, want RateUnavailable", m.FailureRate)
	}

	// The window must behave like a fresh one.
	for i := 0; i < 8; i++ {
		w.Record(false, false)
	}
	if got := w.FailureRate(); got != 0 {
		t.Errorf("after Reset and refill, FailureRate = %v, want 0", got)
	}
}

func TestWindow_ConcurrentConsistency(t *testing.T) {
	w, _ := NewWindow(64)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers assert the indivisible-update invariant: failed and slow
	// counts can never exceed the total.
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				m := w.Metrics()
				if m.NumberOfFailedCalls > m.NumberOfCalls {
					t.Errorf("failed %d > total %d", m.NumberOfFailedCalls, m.NumberOfCalls)
					return
				}
				if m.NumberOfSlowCalls > m.NumberOfCalls {
					t.Errorf("slow %d > total %d", m.NumberOfSlowCalls, m.NumberOfCalls)
					return
				}
			}
		}()
	}

	var writers sync.WaitGroup
	for g := 0; g < 8; g++ {
		writers.Add(1)
		go func(g int) {
			defer writers.Done()
			for i := 0; i < 1000; i++ {
				w.Record(i%3 == 0, i%5 == 0)
			}
		}(g)
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	m := w.Metrics()
	if m.NumberOfCalls != 64 {
		t.Errorf("NumberOfCalls = %d, want 64 (saturated)", m.NumberOfCalls)
	}
}
