// Package engine provides a deterministic reference simulation engine. It
// moves vehicles between their stops with a fixed travel time, parks them when
// the target has a free slot and reports departures. It is not a traffic
// model.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/kilianp07/parkctl/core/model"
	"github.com/kilianp07/parkctl/scenario"
)

// ErrTickLimit is returned by Advance once the configured tick bound is hit.
var ErrTickLimit = errors.New("tick limit reached")

// Capacities reports the slot capacity of a facility.
type Capacities interface {
	Capacity(f model.FacilityID) int
}

type status int

const (
	scheduled status = iota
	travelling
	parked
	done
)

type vehicle struct {
	id     string
	depart int
	params map[string]string
	stops  []model.Stop

	status   status
	idx      int
	arriveAt int
	leaveAt  int
}

// Sim is the built-in engine. It is driven by a single goroutine.
type Sim struct {
	cfg  Config
	caps Capacities
	lead int

	tick      int
	vehicles  map[string]*vehicle
	order     []string
	occupancy map[model.FacilityID]int
	departing []string
}

// New builds an engine from desc. Each vehicle gets its own copy of its stops
// and parameters.
func New(cfg Config, desc *scenario.Descriptor, caps Capacities) (*Sim, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Sim{
		cfg:       cfg,
		caps:      caps,
		lead:      desc.LeadStops,
		vehicles:  make(map[string]*vehicle, len(desc.Vehicles)),
		occupancy: make(map[model.FacilityID]int),
	}
	for _, spec := range desc.Vehicles {
		if _, dup := s.vehicles[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate vehicle %s", scenario.ErrMalformed, spec.ID)
		}
		params := make(map[string]string, len(spec.Params))
		maps.Copy(params, spec.Params)
		stops := make([]model.Stop, len(spec.Stops))
		copy(stops, spec.Stops)
		s.vehicles[spec.ID] = &vehicle{id: spec.ID, depart: spec.Depart, params: params, stops: stops}
		s.order = append(s.order, spec.ID)
	}
	return s, nil
}

// Advance moves the clock by one tick: parked vehicles whose stay ended leave
// first, then scheduled vehicles depart, then travelling vehicles try to park.
func (s *Sim) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks {
		return ErrTickLimit
	}
	s.tick++
	s.departing = s.departing[:0]

	for _, id := range s.order {
		v := s.vehicles[id]
		if v.status == parked && v.leaveAt <= s.tick {
			s.leave(v)
		}
	}
	for _, id := range s.order {
		v := s.vehicles[id]
		if v.status == scheduled && v.depart <= s.tick {
			v.idx = min(s.lead, len(v.stops))
			s.travel(v)
		}
	}
	for _, id := range s.order {
		v := s.vehicles[id]
		if v.status == travelling && v.arriveAt <= s.tick {
			s.tryPark(v)
		}
	}
	return nil
}

func (s *Sim) leave(v *vehicle) {
	s.occupancy[v.stops[v.idx].Facility]--
	s.departing = append(s.departing, v.id)
	v.idx++
	s.travel(v)
}

func (s *Sim) travel(v *vehicle) {
	if v.idx >= len(v.stops) {
		v.status = done
		return
	}
	v.status = travelling
	v.arriveAt = s.tick + s.cfg.TravelTicks
}

// tryPark parks v at its current stop when a slot is free. Otherwise v waits
// at the entrance and retries next tick.
func (s *Sim) tryPark(v *vehicle) {
	stop := v.stops[v.idx]
	if s.occupancy[stop.Facility] >= s.caps.Capacity(stop.Facility) {
		return
	}
	delay, _ := strconv.Atoi(v.params[model.ParamDelay])
	s.occupancy[stop.Facility]++
	v.status = parked
	v.leaveAt = s.tick + max(1, stop.Duration+delay)
}

// Tick returns the current tick.
func (s *Sim) Tick() int { return s.tick }

// Remaining counts vehicles that have not finished their plan.
func (s *Sim) Remaining() int {
	n := 0
	for _, v := range s.vehicles {
		if v.status != done {
			n++
		}
	}
	return n
}

// VehicleIDs returns every vehicle in descriptor order.
func (s *Sim) VehicleIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ActiveVehicles returns travelling and parked vehicles in descriptor order.
func (s *Sim) ActiveVehicles() []string {
	var out []string
	for _, id := range s.order {
		if st := s.vehicles[id].status; st == travelling || st == parked {
			out = append(out, id)
		}
	}
	return out
}

// DepartingVehicles returns the vehicles that left a facility this tick.
func (s *Sim) DepartingVehicles() []string {
	out := make([]string, len(s.departing))
	copy(out, s.departing)
	return out
}

// IsStopped reports whether id is parked.
func (s *Sim) IsStopped(id string) bool {
	v, ok := s.vehicles[id]
	return ok && v.status == parked
}

// Stops returns the stops of id that are still ahead, the current one first.
func (s *Sim) Stops(id string) []model.Stop {
	v, ok := s.vehicles[id]
	if !ok || v.status == done || v.idx >= len(v.stops) {
		return nil
	}
	out := make([]model.Stop, len(v.stops)-v.idx)
	copy(out, v.stops[v.idx:])
	return out
}

// VehicleParams returns a copy of the parameters of id.
func (s *Sim) VehicleParams(id string) map[string]string {
	v, ok := s.vehicles[id]
	if !ok {
		return nil
	}
	return maps.Clone(v.params)
}

// SetVehicleParams merges params into the parameters of id.
func (s *Sim) SetVehicleParams(id string, params map[string]string) error {
	v, ok := s.vehicles[id]
	if !ok {
		return fmt.Errorf("unknown vehicle %s", id)
	}
	maps.Copy(v.params, params)
	return nil
}

// RedirectStop replaces stop index of id. A vehicle waiting at the entrance
// of its old target starts a new leg.
func (s *Sim) RedirectStop(id string, index int, f model.FacilityID, duration int) error {
	v, ok := s.vehicles[id]
	if !ok {
		return fmt.Errorf("unknown vehicle %s", id)
	}
	if index < s.lead || index >= len(v.stops) {
		return fmt.Errorf("vehicle %s: stop index %d out of range", id, index)
	}
	if index < v.idx || (index == v.idx && v.status == parked) {
		return fmt.Errorf("vehicle %s: stop %d already reached", id, index)
	}
	if s.caps.Capacity(f) == 0 {
		return fmt.Errorf("vehicle %s: unknown facility %s", id, f)
	}
	v.stops[index] = model.Stop{Facility: f, Duration: duration}
	if index == v.idx && v.status == travelling && v.arriveAt <= s.tick {
		v.arriveAt = s.tick + s.cfg.TravelTicks
	}
	return nil
}

// Occupancy returns the number of vehicles parked at f.
func (s *Sim) Occupancy(f model.FacilityID) int { return s.occupancy[f] }
