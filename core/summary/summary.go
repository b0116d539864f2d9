// Package summary persists one record per simulation run. The text backend
// appends key/value lines to a log shared by every run; the SQLite backend
// keeps the same records queryable.
package summary

import (
	"context"
	"time"

	"github.com/kilianp07/parkctl/core/ledger"
	"github.com/kilianp07/parkctl/core/model"
)

// Headroom is the free-slot configuration a run used.
type Headroom struct {
	Bootstrap     int `json:"bootstrap"`
	Default       int `json:"default"`
	Override      int `json:"override"`
	RefreshPeriod int `json:"refresh_period"`
}

// RunSummary is the record appended at the end of each run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	Seed      int64         `json:"seed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	FinalTick int           `json:"final_tick"`
	Vehicles  int           `json:"vehicles"`

	Redirects   map[model.Cause]int `json:"redirects"`
	NeverParked int                 `json:"never_parked"`

	ChangedRoute int `json:"changed_route"`
	NoPark       int `json:"no_park"`
	NotFound     int `json:"not_found"`
	Unresolved   int `json:"unresolved"`
	GoodEnds     int `json:"good_ends"`
	BadEnds      int `json:"bad_ends"`

	Headroom    Headroom                   `json:"headroom"`
	Ledger      []ledger.Entry             `json:"ledger"`
	Utilization map[model.Tier]Utilization `json:"utilization,omitempty"`
}

// TotalRedirects sums redirections over every cause.
func (s RunSummary) TotalRedirects() int {
	n := 0
	for _, c := range s.Redirects {
		n += c
	}
	return n
}

// TotalEnds counts every released reservation.
func (s RunSummary) TotalEnds() int { return s.GoodEnds + s.BadEnds }

// Store persists run summaries.
type Store interface {
	Append(ctx context.Context, s RunSummary) error
	// List returns stored summaries, oldest first.
	List(ctx context.Context) ([]RunSummary, error)
	Close() error
}
