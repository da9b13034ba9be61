package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/breakwater/events"
)

// FeedMetrics exports resilience events as OpenTelemetry metrics. It
// implements events.Consumer: subscribe it to a feed and every state
// transition, recorded outcome, and permit decision lands on the meter.
type FeedMetrics struct {
	transitions  metric.Int64Counter
	calls        metric.Int64Counter
	permits      metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewFeedMetrics creates a feed consumer recording to the given meter.
func NewFeedMetrics(meter metric.Meter) (*FeedMetrics, error) {
	transitions, err := meter.Int64Counter(
		"resilience.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"resilience.circuit.calls",
		metric.WithDescription("Recorded call outcomes by kind"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	permits, err := meter.Int64Counter(
		"resilience.ratelimit.permits",
		metric.WithDescription("Rate limiter permission decisions"),
		metric.WithUnit("{permit}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"resilience.call.duration_ms",
		metric.WithDescription("Recorded call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &FeedMetrics{
		transitions:  transitions,
		calls:        calls,
		permits:      permits,
		durationHist: durationHist,
	}, nil
}

// Consume records one event. Feed delivery is synchronous, so this stays
// allocation-light and never blocks.
func (m *FeedMetrics) Consume(e events.Event) {
	ctx := context.Background()
	source := attribute.String("source", e.Source)

	switch e.Kind {
	case events.KindStateTransition:
		m.transitions.Add(ctx, 1, metric.WithAttributes(
			source,
			attribute.String("from", e.From),
			attribute.String("to", e.To),
		))

	case events.KindSuccessRecorded, events.KindErrorRecorded, events.KindErrorIgnored, events.KindSlowCallRecorded:
		m.calls.Add(ctx, 1, metric.WithAttributes(
			source,
			attribute.String("kind", e.Kind.String()),
		))
		if e.Kind != events.KindSlowCallRecorded {
			m.durationHist.Record(ctx, float64(e.Duration)/float64(time.Millisecond),
				metric.WithAttributes(source))
		}

	case events.KindPermitGranted, events.KindPermitDenied:
		m.permits.Add(ctx, 1, metric.WithAttributes(
			source,
			attribute.String("kind", e.Kind.String()),
		))
	}
}

// Ensure FeedMetrics implements events.Consumer.
var _ events.Consumer = (*FeedMetrics)(nil)

// NewFeedLogger returns a feed consumer that logs state transitions and
// permit denials. Transitions into the open state log at warn level.
func NewFeedLogger(logger Logger) events.Consumer {
	return events.ConsumerFunc(func(e events.Event) {
		ctx := context.Background()
		l := logger.WithSource(e.Source)

		switch e.Kind {
		case events.KindStateTransition:
			fields := []Field{
				{Key: "from", Value: e.From},
				{Key: "to", Value: e.To},
			}
			if e.To == "open" || e.To == "forced-open" {
				l.Warn(ctx, "circuit breaker opened", fields...)
			} else {
				l.Info(ctx, "circuit breaker state change", fields...)
			}

		case events.KindPermitDenied:
			l.Warn(ctx, "rate limit permit denied",
				Field{Key: "wait_ms", Value: float64(e.Duration) / float64(time.Millisecond)})
		}
	})
}
