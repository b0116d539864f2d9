package engine

import "fmt"

// Config holds parameters for the built-in engine.
type Config struct {
	// Scenario is the path of the descriptor driving the run.
	Scenario    string `json:"scenario"`
	TravelTicks int    `json:"travel_ticks"`
	// MaxTicks bounds the run. Zero means unbounded.
	MaxTicks int `json:"max_ticks"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TravelTicks == 0 {
		c.TravelTicks = 30
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TravelTicks <= 0 {
		return fmt.Errorf("engine.travel_ticks must be positive")
	}
	if c.MaxTicks < 0 {
		return fmt.Errorf("engine.max_ticks must not be negative")
	}
	return nil
}
