package admission

import (
	"context"
	"fmt"
	"maps"

	"github.com/kilianp07/parkctl/core/model"
)

type redirectCall struct {
	ID       string
	Index    int
	Facility model.FacilityID
	Duration int
}

// fakeEngine is a scripted engine: tests set the tick, the active set,
// stopped vehicles, departures and occupancy directly.
type fakeEngine struct {
	tick      int
	ids       []string
	active    []string
	departing []string
	stopped   map[string]bool
	stops     map[string][]model.Stop
	params    map[string]map[string]string
	occ       map[model.FacilityID]int
	redirects []redirectCall
	failNext  error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		stopped: make(map[string]bool),
		stops:   make(map[string][]model.Stop),
		params:  make(map[string]map[string]string),
		occ:     make(map[model.FacilityID]int),
	}
}

func (f *fakeEngine) add(id string, params map[string]string, stops ...model.Stop) {
	f.ids = append(f.ids, id)
	f.active = append(f.active, id)
	f.params[id] = maps.Clone(params)
	f.stops[id] = stops
}

func (f *fakeEngine) Advance(context.Context) error { f.tick++; return nil }
func (f *fakeEngine) Tick() int                     { return f.tick }
func (f *fakeEngine) Remaining() int                { return len(f.active) }
func (f *fakeEngine) VehicleIDs() []string          { return f.ids }
func (f *fakeEngine) ActiveVehicles() []string      { return f.active }
func (f *fakeEngine) DepartingVehicles() []string   { return f.departing }
func (f *fakeEngine) IsStopped(id string) bool      { return f.stopped[id] }
func (f *fakeEngine) Stops(id string) []model.Stop  { return f.stops[id] }

func (f *fakeEngine) VehicleParams(id string) map[string]string {
	return maps.Clone(f.params[id])
}

func (f *fakeEngine) SetVehicleParams(id string, params map[string]string) error {
	if _, ok := f.params[id]; !ok {
		return fmt.Errorf("unknown vehicle %s", id)
	}
	maps.Copy(f.params[id], params)
	return nil
}

func (f *fakeEngine) RedirectStop(id string, index int, fac model.FacilityID, duration int) error {
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	f.redirects = append(f.redirects, redirectCall{ID: id, Index: index, Facility: fac, Duration: duration})
	return nil
}

func (f *fakeEngine) Occupancy(fac model.FacilityID) int { return f.occ[fac] }
