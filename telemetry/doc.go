// Package telemetry provides observability for the resilience primitives.
//
// The core packages never log or export metrics themselves; they publish
// events to an events.Feed. This package bridges that feed to the outside
// world: FeedMetrics exports transitions, outcomes, and permit decisions as
// OpenTelemetry metrics, and NewFeedLogger turns transitions and denials
// into structured log lines.
//
// Observer wires up the OpenTelemetry providers (tracer, meter) with
// pluggable exporters (stdout, OTLP over gRPC, or Prometheus) plus the
// JSON structured logger.
//
// # Usage
//
//	obs, err := telemetry.NewObserver(ctx, telemetry.Config{
//	    ServiceName: "orders",
//	    Metrics:     telemetry.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     telemetry.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer obs.Shutdown(ctx)
//
//	feed := events.NewFeed()
//	fm, _ := telemetry.NewFeedMetrics(obs.Meter())
//	feed.Subscribe(fm)
//	feed.Subscribe(telemetry.NewFeedLogger(obs.Logger()))
package telemetry
