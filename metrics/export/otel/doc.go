// Package otel binds authcore counters and histograms to OpenTelemetry
// observable instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each engine
// counter and an Int64ObservableGauge per histogram bucket. A single callback
// reads [authcore.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider - callers supply the Meter.
//   - Mutate engine state.
package otel
