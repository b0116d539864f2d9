package metrics

import (
	"fmt"

	"github.com/kilianp07/parkctl/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort exposes /metrics when set, e.g. ":9100".
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
	// TickInterval records every n-th tick snapshot.
	TickInterval int `json:"tick_interval" yaml:"tick_interval"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = 100
	}
}

// Validate checks the sink list and the sampling interval.
func (c Config) Validate() error {
	if c.TickInterval < 0 {
		return fmt.Errorf("metrics.tick_interval must not be negative")
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
