package events

import "github.com/kilianp07/parkctl/core/model"

// DepartureEvent is emitted when a parked vehicle leaves its facility.
type DepartureEvent struct {
	VehicleID string
	Facility  model.FacilityID
	Delay     int
	// Released is false when the reservation was already dropped by an
	// eviction.
	Released bool
	Rating   int
	Tick     int
}

// EvictionEvent is emitted when an overstaying vehicle loses its reservation
// at its scheduled departure.
type EvictionEvent struct {
	VehicleID string
	Facility  model.FacilityID
	Tick      int
}
