// Package otel binds goSession engine metrics to an OpenTelemetry meter.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and,
// for the verify latency histogram, a bucket gauge keyed by an "le" attribute
// plus a count gauge. One callback reads Engine.MetricsSnapshot per
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
