// Package metrics defines interfaces for collecting admission metrics.
// Sinks like PromSink and InfluxSink record tick snapshots, redirections and
// departures and can be combined with NewMultiSink. NewMetricsSink returns a
// MultiSink automatically when multiple sinks are configured.
package metrics
