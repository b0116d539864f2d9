package metrics

import (
	"fmt"

	"github.com/kilianp07/parkctl/core/factory"
	coremetrics "github.com/kilianp07/parkctl/core/metrics"
)

// Sink type names accepted in metrics.sinks.
const (
	SinkNop        = "nop"
	SinkPrometheus = "prometheus"
	SinkInflux     = "influx"
)

// InfluxConfig is the conf block of an influx sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func (c *InfluxConfig) setDefaults() {
	if c.Org == "" {
		c.Org = "parkctl"
	}
	if c.Bucket == "" {
		c.Bucket = "parking"
	}
}

func (c InfluxConfig) validate() error {
	if c.URL == "" {
		return fmt.Errorf("influx sink: url is required")
	}
	return nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink(SinkNop, func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink(SinkPrometheus, func(map[string]any) (coremetrics.MetricsSink, error) {
		s, err := NewPromSink()
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	_ = coremetrics.RegisterMetricsSink(SinkInflux, func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		c.setDefaults()
		if err := c.validate(); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
