package events

import "github.com/kilianp07/parkctl/core/model"

// RedirectEvent is published for every committed redirection.
type RedirectEvent struct {
	VehicleID string
	StopIndex int
	From      model.FacilityID
	To        model.FacilityID
	Cause     model.Cause
	Tick      int
}
