package admission

import (
	"fmt"

	"github.com/kilianp07/parkctl/core/freeslot"
	"github.com/kilianp07/parkctl/core/ledger"
	"github.com/kilianp07/parkctl/core/model"
	"github.com/kilianp07/parkctl/core/registry"
	"github.com/kilianp07/parkctl/core/reputation"
	"github.com/kilianp07/parkctl/scenario"
)

// State owns every ledger of a run. Only the Controller and the Reconciler
// mutate it.
type State struct {
	Registry   *registry.Registry
	Ledger     *ledger.Ledger
	Policy     *freeslot.Policy
	Reputation *reputation.Policy
	Stats      *Stats

	vehicles map[string]*model.Vehicle
	order    []string
}

// NewState returns an empty state over reg.
func NewState(reg *registry.Registry, policy freeslot.Config, pricing reputation.Pricing) *State {
	return &State{
		Registry:   reg,
		Ledger:     ledger.New(),
		Policy:     freeslot.New(policy),
		Reputation: reputation.New(pricing, policy.SlotDuration),
		Stats:      newStats(),
		vehicles:   make(map[string]*model.Vehicle),
	}
}

// Load validates desc against the registry and the engine and creates one
// vehicle record per engine vehicle, in engine order.
func (s *State) Load(desc *scenario.Descriptor, eng Engine) error {
	if err := desc.Validate(s.Registry); err != nil {
		return err
	}
	ids := eng.VehicleIDs()
	if len(ids) != len(desc.Vehicles) {
		return fmt.Errorf("%w: engine has %d vehicles, descriptor %d", scenario.ErrMalformed, len(ids), len(desc.Vehicles))
	}
	for _, id := range ids {
		spec, ok := desc.Vehicle(id)
		if !ok {
			return fmt.Errorf("%w: vehicle %s has no plan", scenario.ErrMalformed, id)
		}
		v, err := model.FromParams(id, eng.VehicleParams(id))
		if err != nil {
			return fmt.Errorf("%w: %v", scenario.ErrMalformed, err)
		}
		v.Plan = spec.Plan(desc.LeadStops)
		if err := s.AddVehicle(v); err != nil {
			return err
		}
	}
	return nil
}

// AddVehicle registers a vehicle record.
func (s *State) AddVehicle(v model.Vehicle) error {
	if _, dup := s.vehicles[v.ID]; dup {
		return fmt.Errorf("%w: duplicate vehicle %s", scenario.ErrMalformed, v.ID)
	}
	rec := v
	s.vehicles[v.ID] = &rec
	s.order = append(s.order, v.ID)
	return nil
}

// Vehicle returns the record of id.
func (s *State) Vehicle(id string) (*model.Vehicle, bool) {
	v, ok := s.vehicles[id]
	return v, ok
}

// Vehicles returns every record in load order.
func (s *State) Vehicles() []*model.Vehicle {
	out := make([]*model.Vehicle, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.vehicles[id])
	}
	return out
}

// Holders counts vehicles holding an unreleased reservation.
func (s *State) Holders() int {
	n := 0
	for _, v := range s.vehicles {
		if v.HasReservation {
			n++
		}
	}
	return n
}

// NeverParked counts vehicles that never stopped at a facility.
func (s *State) NeverParked() int {
	n := 0
	for _, v := range s.vehicles {
		if v.Parks == 0 {
			n++
		}
	}
	return n
}

// Verify checks the reservation ledger against the holders.
func (s *State) Verify() error {
	return s.Ledger.Verify(s.Holders())
}
