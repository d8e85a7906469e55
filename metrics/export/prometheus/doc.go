// Package prometheus publishes goSession engine metrics through
// client_golang.
//
// [Collector] implements prometheus.Collector and can be registered anywhere.
// [Exporter] wraps it in a private registry and serves it with promhttp.
// Counter names are gosession_*_total; the single histogram is
// gosession_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
