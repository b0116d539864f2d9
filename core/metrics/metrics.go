package metrics

import (
	"time"

	"github.com/kilianp07/parkctl/core/model"
)

// TickEvent is a per-tick snapshot of the admission state.
type TickEvent struct {
	RunID        string
	Tick         int
	Active       int
	Stopped      int
	Reservations int
	// Occupancy and Capacity are aggregated per tier.
	Occupancy map[model.Tier]int
	Capacity  map[model.Tier]int
	Time      time.Time
}

// MetricsSink records admission metrics for observability purposes.
type MetricsSink interface {
	RecordTick(ev TickEvent) error
}

// RedirectEvent captures a committed redirection.
type RedirectEvent struct {
	RunID     string
	VehicleID string
	From      model.FacilityID
	To        model.FacilityID
	Cause     model.Cause
	Tick      int
	Time      time.Time
}

// RedirectRecorder records redirections.
type RedirectRecorder interface {
	RecordRedirect(ev RedirectEvent) error
}

// DepartureEvent captures the end of a stop. Evicted is set for overstaying
// vehicles that lost their reservation before leaving.
type DepartureEvent struct {
	RunID     string
	VehicleID string
	Facility  model.FacilityID
	Delay     int
	Evicted   bool
	Tick      int
	Time      time.Time
}

// DepartureRecorder records departures and evictions.
type DepartureRecorder interface {
	RecordDeparture(ev DepartureEvent) error
}

// RunEvent summarizes a finished run.
type RunEvent struct {
	RunID       string
	Scenario    string
	FinalTick   int
	Redirects   map[model.Cause]int
	NeverParked int
	Duration    time.Duration
	Time        time.Time
}

// RunRecorder records finished runs.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickEvent) error           { return nil }
func (NopSink) RecordRedirect(RedirectEvent) error   { return nil }
func (NopSink) RecordDeparture(DepartureEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error             { return nil }
