package admission

import (
	"context"

	"github.com/kilianp07/parkctl/core/model"
)

// Engine is the simulation engine driving the admission loop. Vehicle
// parameters cross this boundary in the engine's string-keyed form.
type Engine interface {
	Advance(ctx context.Context) error
	Tick() int
	// Remaining counts vehicles still scheduled or active.
	Remaining() int
	VehicleIDs() []string
	ActiveVehicles() []string
	// DepartingVehicles lists vehicles that left a facility this tick.
	DepartingVehicles() []string
	IsStopped(id string) bool
	Stops(id string) []model.Stop
	VehicleParams(id string) map[string]string
	SetVehicleParams(id string, params map[string]string) error
	RedirectStop(id string, index int, f model.FacilityID, duration int) error
	Occupancy(f model.FacilityID) int
}
