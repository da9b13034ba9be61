package circuit

import (
	"errors"
	"testing"
	"time"
)

// BenchmarkWindow_Record measures the outcome recording hot path.
func BenchmarkWindow_Record(b *testing.B) {
	w, _ := NewWindow(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Record(i%4 == 0, i%8 == 0)
	}
}

// BenchmarkCircuitBreaker_AcquirePermission measures the closed-state fast
// path, the per-call overhead when nothing is wrong.
func BenchmarkCircuitBreaker_AcquirePermission(b *testing.B) {
	cb, _ := New(Config{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.AcquirePermission()
	}
}

// BenchmarkCircuitBreaker_OnSuccess measures success recording with outcome
// evaluation.
func BenchmarkCircuitBreaker_OnSuccess(b *testing.B) {
	cb, _ := New(Config{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb.OnSuccess(time.Millisecond)
	}
}

// BenchmarkCircuitBreaker_Concurrent measures contended mixed recording.
func BenchmarkCircuitBreaker_Concurrent(b *testing.B) {
	cb, _ := New(Config{FailureRateThreshold: 100})
	errBoom := errors.New("boom")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				cb.OnError(time.Millisecond, errBoom)
			} else {
				cb.OnSuccess(time.Millisecond)
			}
			i++
		}
	})
}
