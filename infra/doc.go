// Package infra holds the adapters around the admission core: the zerolog
// logger, the Prometheus and InfluxDB metrics sinks, the Sentry monitor and
// the MQTT redirect notifier. They depend on core interfaces, never the other
// way round.
package infra
