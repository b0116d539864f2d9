package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/parkctl/core/admission/logging"
	"github.com/kilianp07/parkctl/core/freeslot"
	"github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/registry"
	"github.com/kilianp07/parkctl/core/reputation"
	"github.com/kilianp07/parkctl/core/summary"
	"github.com/kilianp07/parkctl/engine"
	"github.com/kilianp07/parkctl/infra/notify"
	"github.com/kilianp07/parkctl/scenario"
)

type Config struct {
	LogLevel string                  `json:"log_level"`
	Parking  registry.Config         `json:"parking"`
	Policy   freeslot.Config         `json:"policy"`
	Pricing  reputation.Pricing      `json:"pricing"`
	Engine   engine.Config           `json:"engine"`
	Generate scenario.GenerateConfig `json:"generate"`
	Summary  summary.Config          `json:"summary"`
	Trace    logging.Config          `json:"trace"`
	Metrics  metrics.Config          `json:"metrics"`
	Notify   notify.Config           `json:"notify"`
	Sentry   SentryConfig            `json:"sentry"`
}

// Default returns the reference configuration.
func Default() Config {
	cfg := Config{
		LogLevel: "info",
		Parking:  registry.Config{TownRows: 2, SlotsPerRow: 10, OutOfTownSlots: 10},
		Policy:   freeslot.DefaultConfig(),
		Pricing:  reputation.DefaultPricing(),
		Generate: scenario.DefaultGenerateConfig(),
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Engine.SetDefaults()
	c.Summary.SetDefaults()
	c.Trace.SetDefaults()
	c.Metrics.SetDefaults()
	c.Notify.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Parking.TownRows <= 0 || c.Parking.SlotsPerRow <= 0 || c.Parking.OutOfTownSlots <= 0 {
		return fmt.Errorf("parking: town_rows, slots_per_row and out_of_town_slots must be positive")
	}
	if c.Parking.FleetSize < 0 {
		return fmt.Errorf("parking.fleet_size must not be negative")
	}
	checks := []struct {
		section string
		err     error
	}{
		{"policy", c.Policy.Validate()},
		{"pricing", c.Pricing.Validate()},
		{"engine", c.Engine.Validate()},
		{"summary", c.Summary.Validate()},
		{"trace", c.Trace.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"notify", c.Notify.Validate()},
		{"sentry", c.Sentry.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.section, ch.err)
		}
	}
	return nil
}

// Load reads path over the defaults and applies K_ environment overrides,
// e.g. K_POLICY__OVERRIDE_HEADROOM=2.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
