// Package metrics provides the Prometheus and InfluxDB implementations of the
// core metrics sinks, the event-bus collector feeding them and the HTTP
// endpoint exposing Prometheus metrics.
package metrics
