package logging

import "fmt"

// Trace backends.
const (
	BackendNone  = "none"
	BackendJSONL = "jsonl"
	BackendZstd  = "zstd"
)

// Config defines the decision trace storage and its rotation.
type Config struct {
	// Backend selects the store type: "none", "jsonl" or "zstd".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendZstd:
			c.Path = "admission.jsonl.zst"
		default:
			c.Path = "admission.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone, BackendJSONL, BackendZstd:
	default:
		return fmt.Errorf("trace.backend: unknown backend %q", c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("trace rotation settings must not be negative")
	}
	return nil
}

// Open returns the configured store.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendJSONL:
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendZstd:
		return NewZstdStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}
