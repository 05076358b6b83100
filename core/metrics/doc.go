// Package metrics defines the observability contract of the marketplace.
// MetricsSink implementations (Prometheus, InfluxDB) record posted shipments,
// submitted quotes, booking transitions and real-time delivery outcomes.
// Optional capabilities are exposed as separate recorder interfaces that
// MultiSink forwards when the wrapped sink supports them.
package metrics
