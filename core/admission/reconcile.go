package admission

import (
	"context"
	"fmt"

	"github.com/kilianp07/parkctl/core/admission/logging"
	"github.com/kilianp07/parkctl/core/events"
	"github.com/kilianp07/parkctl/core/logger"
	"github.com/kilianp07/parkctl/core/model"
)

// Pending counts departures reconciled this tick, per facility.
type Pending map[model.FacilityID]int

// take consumes one pending departure at f.
func (p Pending) take(f model.FacilityID) bool {
	if p[f] <= 0 {
		return false
	}
	p[f]--
	return true
}

// Reconciler applies the engine's departure events to the ledgers before the
// controller runs.
type Reconciler struct {
	state  *State
	engine Engine
	emitter
}

// NewReconciler wires a reconciler over state and eng.
func NewReconciler(state *State, eng Engine, log logger.Logger, hooks Hooks) *Reconciler {
	return &Reconciler{state: state, engine: eng, emitter: emitter{hooks: hooks, log: log}}
}

// Process drains the departures of the current tick, applies overstay
// evictions and resets the free-slot cycle on refresh boundaries.
func (r *Reconciler) Process(ctx context.Context) (Pending, error) {
	tick := r.engine.Tick()
	pending := make(Pending)

	if r.state.Policy.IsRefreshBoundary(tick) {
		r.state.Policy.ResetCycle()
		r.state.Stats.Refreshes++
		r.trace(ctx, logging.Record{Tick: tick, Kind: logging.KindRefresh})
		r.log.Debugf("free-slot cycle reset at tick %d", tick)
	}

	for _, id := range r.engine.DepartingVehicles() {
		v, ok := r.state.Vehicle(id)
		if !ok {
			continue
		}
		if err := r.depart(ctx, v, tick, pending); err != nil {
			return nil, err
		}
	}

	for _, v := range r.state.Vehicles() {
		if !r.overstaying(v, tick) {
			continue
		}
		if err := r.evict(ctx, v, tick); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

func (r *Reconciler) depart(ctx context.Context, v *model.Vehicle, tick int, pending Pending) error {
	from := v.LastFacility
	released := false
	if v.HasReservation {
		if err := r.state.Ledger.Release(from); err != nil {
			return fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		v.HasReservation = false
		released = true
		r.state.Stats.Ends++
	}
	if !from.IsZero() {
		pending[from]++
	}

	r.state.Reputation.OnDeparture(v, v.Delay)
	if err := r.engine.SetVehicleParams(v.ID, v.Params()); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.ID, err)
	}

	v.Phase = model.Moving
	v.ScheduledDeparture = 0
	v.LastFacility = model.NoFacility
	if next, ok := v.Plan.Current(); ok {
		v.LastFacility = next.Facility
	}

	r.publish(events.DepartureEvent{
		VehicleID: v.ID,
		Facility:  from,
		Delay:     v.Delay,
		Released:  released,
		Rating:    v.Rating,
		Tick:      tick,
	})
	r.trace(ctx, logging.Record{
		Tick:      tick,
		Kind:      logging.KindDeparture,
		VehicleID: v.ID,
		From:      from.String(),
		Delay:     v.Delay,
		Wallet:    v.Wallet,
		Rating:    v.Rating,
	})
	return nil
}

// overstaying reports whether v reached its scheduled departure while still
// parked with a delay.
func (r *Reconciler) overstaying(v *model.Vehicle, tick int) bool {
	return v.Phase == model.Stopped &&
		v.HasReservation &&
		v.Delay > 0 &&
		v.ScheduledDeparture == tick &&
		r.state.Registry.Tier(v.LastFacility).InTown()
}

func (r *Reconciler) evict(ctx context.Context, v *model.Vehicle, tick int) error {
	f := v.LastFacility
	if err := r.state.Ledger.Release(f); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.ID, err)
	}
	v.HasReservation = false
	r.state.Policy.CreditMisbehavior(f)
	r.state.Stats.Evictions++

	r.publish(events.EvictionEvent{VehicleID: v.ID, Facility: f, Tick: tick})
	r.trace(ctx, logging.Record{
		Tick:      tick,
		Kind:      logging.KindEviction,
		VehicleID: v.ID,
		From:      f.String(),
		Delay:     v.Delay,
	})
	r.log.Debugw("evicted", logger.Fields{"vehicle": v.ID, "facility": f.String(), "tick": tick})
	return nil
}
