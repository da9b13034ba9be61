package events

import (
	"errors"
	"testing"
	"time"
)

func TestNewRingLog_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewRingLog(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewRingLog(%d) error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}
}

func TestRingLog_KeepsMostRecent(t *testing.T) {
	log, err := NewRingLog(3)
	if err != nil {
		t.Fatalf("NewRingLog() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		log.Consume(Event{Kind: KindSuccessRecorded, Duration: time.Duration(i)})
	}

	if log.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", log.Len())
	}
	if log.Capacity() != 3 {
		t.Errorf("Capacity() = %d, want 3", log.Capacity())
	}

	// Oldest first: events 2, 3, 4 survive.
	evs := log.Events()
	for i, want := range []time.Duration{2, 3, 4} {
		if evs[i].Duration != want {
			t.Errorf("Events()[%d].Duration = %d, want %d", i, evs[i].Duration, want)
		}
	}
}

func TestRingLog_PartiallyFilled(t *testing.T) {
	log, _ := NewRingLog(8)

	log.Consume(Event{Kind: KindStateTransition, From: "closed", To: "open"})
	log.Consume(Event{Kind: KindStateTransition, From: "open", To: "half-open"})

	evs := log.Events()
	if len(evs) != 2 {
		t.Fatalf("Events() has %d entries, want 2", len(evs))
	}
	if evs[0].To != "open" || evs[1].To != "half-open" {
		t.Errorf("Events() out of order: %+v", evs)
	}
}

func TestRingLog_EventsReturnsCopy(t *testing.T) {
	log, _ := NewRingLog(4)
	log.Consume(Event{Source: "a"})

	evs := log.Events()
	evs[0].Source = "mutated"

	if got := log.Events()[0].Source; got != "a" {
		t.Errorf("Events() shares backing storage; source = %q, want a", got)
	}
}

func TestRingLog_AsFeedConsumer(t *testing.T) {
	feed := NewFeed()
	log, _ := NewRingLog(4)
	feed.Subscribe(log)

	feed.Publish(Event{Kind: KindPermitDenied, Source: "search"})

	if log.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", log.Len())
	}
	if got := log.Events()[0].Source; got != "search" {
		t.Errorf("source = %q, want search", got)
	}
}
