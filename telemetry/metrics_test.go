package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/breakwater/events"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			sums[m.Name] = total
		}
	}
	return sums
}

func TestFeedMetrics_CountsEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	fm, err := NewFeedMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewFeedMetrics() error = %v", err)
	}

	feed := events.NewFeed()
	feed.Subscribe(fm)

	feed.Publish(events.Event{Kind: events.KindStateTransition, Source: "payments", From: "closed", To: "open"})
	feed.Publish(events.Event{Kind: events.KindSuccessRecorded, Source: "payments", Duration: time.Millisecond})
	feed.Publish(events.Event{Kind: events.KindErrorRecorded, Source: "payments", Duration: time.Millisecond})
	feed.Publish(events.Event{Kind: events.KindPermitGranted, Source: "search"})
	feed.Publish(events.Event{Kind: events.KindPermitDenied, Source: "search"})

	sums := collectSums(t, reader)
	if got := sums["resilience.circuit.transitions"]; got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
	if got := sums["resilience.circuit.calls"]; got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if got := sums["resilience.ratelimit.permits"]; got != 2 {
		t.Errorf("permits = %d, want 2", got)
	}
}

func TestFeedMetrics_RecordsDurations(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	fm, err := NewFeedMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewFeedMetrics() error = %v", err)
	}

	fm.Consume(events.Event{Kind: events.KindSuccessRecorded, Source: "payments", Duration: 250 * time.Millisecond})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "resilience.call.duration_ms" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("duration metric is %T, want Histogram[float64]", m.Data)
			}
			for _, dp := range hist.DataPoints {
				found = true
				if dp.Sum != 250 {
					t.Errorf("histogram sum = %v, want 250", dp.Sum)
				}
			}
		}
	}
	if !found {
		t.Error("no duration histogram data points recorded")
	}
}

func TestFeedLogger_LogsTransitionsAndDenials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	feed := events.NewFeed()
	feed.Subscribe(NewFeedLogger(logger))

	feed.Publish(events.Event{Kind: events.KindStateTransition, Source: "payments", From: "closed", To: "open"})
	feed.Publish(events.Event{Kind: events.KindStateTransition, Source: "payments", From: "open", To: "half-open"})
	feed.Publish(events.Event{Kind: events.KindPermitDenied, Source: "search", Duration: time.Millisecond})
	feed.Publish(events.Event{Kind: events.KindSuccessRecorded, Source: "payments"}) // not logged

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0]["level"] != "warn" || entries[0]["to"] != "open" {
		t.Errorf("open transition = %v, want warn with to=open", entries[0])
	}
	if entries[1]["level"] != "info" || entries[1]["to"] != "half-open" {
		t.Errorf("half-open transition = %v, want info with to=half-open", entries[1])
	}
	if entries[2]["level"] != "warn" || entries[2]["source"] != "search" {
		t.Errorf("denial = %v, want warn from search", entries[2])
	}
}
