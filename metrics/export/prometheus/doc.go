// Package prometheus exposes goShare engine counters and event gateway
// statistics as a Prometheus collector.
//
// [Exporter] implements [prometheus.Collector]. [Exporter.Handler] serves
// it from a private registry; Register adds it to a caller-owned one.
// Engine counters are named goshare_*_total and are omitted while engine
// metrics are disabled. Gateway series are present whenever a gateway
// source is attached.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate engine or gateway state.
package prometheus
