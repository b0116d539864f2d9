package summary

import "fmt"

// Backends.
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

// Config selects where run summaries are written.
type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendText
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "summaries.db"
		default:
			c.Path = "output.txt"
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendText, BackendSQLite:
		return nil
	default:
		return fmt.Errorf("summary.backend must be %q or %q, got %q", BackendText, BackendSQLite, c.Backend)
	}
}

// NewStore opens the configured backend.
func NewStore(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendSQLite {
		return NewSQLiteStore(cfg.Path)
	}
	return NewTextStore(cfg.Path), nil
}
