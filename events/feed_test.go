package events

import (
	"sync"
	"testing"
	"time"
)

func TestFeed_DeliversInSubscriptionOrder(t *testing.T) {
	feed := NewFeed()

	var order []string
	feed.Subscribe(ConsumerFunc(func(Event) { order = append(order, "first") }))
	feed.Subscribe(ConsumerFunc(func(Event) { order = append(order, "second") }))
	feed.Subscribe(ConsumerFunc(func(Event) { order = append(order, "third") }))

	feed.Publish(Event{Kind: KindSuccessRecorded, Source: "api"})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("delivered to %d consumers, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestFeed_StampsTime(t *testing.T) {
	feed := NewFeed()

	var got Event
	feed.Subscribe(ConsumerFunc(func(e Event) { got = e }))

	before := time.Now()
	feed.Publish(Event{Kind: KindPermitGranted, Source: "search"})

	if got.Time.Before(before) {
		t.Errorf("event time %v predates publish", got.Time)
	}

	// A caller-supplied timestamp is preserved.
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	feed.Publish(Event{Kind: KindPermitGranted, Time: stamp})
	if !got.Time.Equal(stamp) {
		t.Errorf("event time = %v, want caller-supplied %v", got.Time, stamp)
	}
}

func TestFeed_Subscribers(t *testing.T) {
	feed := NewFeed()
	if got := feed.Subscribers(); got != 0 {
		t.Errorf("Subscribers() = %d, want 0", got)
	}
	feed.Subscribe(ConsumerFunc(func(Event) {}))
	feed.Subscribe(ConsumerFunc(func(Event) {}))
	if got := feed.Subscribers(); got != 2 {
		t.Errorf("Subscribers() = %d, want 2", got)
	}
}

func TestFeed_ConcurrentPublishIsOrdered(t *testing.T) {
	feed := NewFeed()

	// Two consumers record the event streams they see; synchronous ordered
	// delivery means both must observe the identical sequence.
	var a, b []Event
	feed.Subscribe(ConsumerFunc(func(e Event) { a = append(a, e) }))
	feed.Subscribe(ConsumerFunc(func(e Event) { b = append(b, e) }))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				feed.Publish(Event{Kind: KindSuccessRecorded, Source: "worker", Duration: time.Duration(g)})
			}
		}(g)
	}
	wg.Wait()

	if len(a) != 400 || len(b) != 400 {
		t.Fatalf("consumer streams have %d and %d events, want 400 each", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("streams diverge at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindStateTransition, "state-transition"},
		{KindSuccessRecorded, "success-recorded"},
		{KindErrorRecorded, "error-recorded"},
		{KindErrorIgnored, "error-ignored"},
		{KindSlowCallRecorded, "slow-call-recorded"},
		{KindPermitGranted, "permit-granted"},
		{KindPermitDenied, "permit-denied"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
