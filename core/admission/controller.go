package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/parkctl/core/admission/logging"
	"github.com/kilianp07/parkctl/core/events"
	"github.com/kilianp07/parkctl/core/logger"
	"github.com/kilianp07/parkctl/core/model"
	"github.com/kilianp07/parkctl/core/reputation"
	"github.com/kilianp07/parkctl/core/search"
	"github.com/kilianp07/parkctl/scenario"
)

// Controller runs the per-tick admission decision for every active vehicle.
type Controller struct {
	state    *State
	engine   Engine
	searcher *search.Searcher
	emitter
}

// NewController wires a controller over state and eng.
func NewController(state *State, eng Engine, log logger.Logger, hooks Hooks) *Controller {
	return &Controller{
		state:    state,
		engine:   eng,
		searcher: search.New(state.Registry, state.Ledger, state.Policy, eng),
		emitter:  emitter{hooks: hooks, log: log},
	}
}

// Searcher exposes the facility search bound to the live state.
func (c *Controller) Searcher() *search.Searcher { return c.searcher }

// Step processes the engine's active vehicles in engine order. pending holds
// the departures reconciled for this tick and is consumed as vehicles are
// allowed to wait for them.
func (c *Controller) Step(ctx context.Context, pending Pending) error {
	start := time.Now()
	defer func() { stepLatency.Observe(time.Since(start).Seconds()) }()

	tick := c.engine.Tick()
	for _, id := range c.engine.ActiveVehicles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok := c.state.Vehicle(id)
		if !ok {
			return fmt.Errorf("%w: engine reports unknown vehicle %s", scenario.ErrMalformed, id)
		}
		if c.engine.IsStopped(id) {
			if v.Phase != model.Stopped {
				if err := c.onStopped(ctx, v, tick); err != nil {
					return err
				}
			}
			continue
		}
		if v.Phase == model.Stopped {
			v.Phase = model.Moving
		}
		if len(c.engine.Stops(id)) == 0 {
			continue
		}
		stop, ok := v.Plan.Current()
		if !ok {
			continue
		}
		if err := c.admit(ctx, v, stop, tick, pending); err != nil {
			return err
		}
	}
	reservations.Set(float64(c.state.Ledger.Sum()))
	return nil
}

// admit runs the gate, the registration and both overflow checks for a
// moving vehicle heading to stop.
func (c *Controller) admit(ctx context.Context, v *model.Vehicle, stop model.Stop, tick int, pending Pending) error {
	target := stop.Facility
	inTown := c.state.Registry.Tier(target).InTown()

	if !v.HasReservation && inTown {
		rep := c.state.Reputation
		if !rep.Eligible(v) {
			redirected, err := c.toOutOfTown(ctx, v, stop, tick, model.CauseReputationBarred)
			if redirected {
				v.GoodBehavior = true
			}
			return err
		}
		balance, err := rep.TryCharge(v, stop.Duration)
		if errors.Is(err, reputation.ErrInsufficientFunds) {
			_, err = c.toOutOfTown(ctx, v, stop, tick, model.CauseInsufficientFunds)
			return err
		}
		if err != nil {
			return err
		}
		rep.Stage(v, balance)
	}

	if !v.HasReservation {
		if err := c.state.Ledger.Reserve(target); err != nil {
			return err
		}
		v.HasReservation = true
		v.LastFacility = target
	}

	capacity := c.state.Registry.Capacity(target)
	limit := capacity - c.state.Policy.Headroom(target, tick)
	count := c.state.Ledger.Count(target)

	if count > limit {
		if pending.take(target) {
			return nil
		}
		return c.overflow(ctx, v, stop, tick, search.ReservationAware, model.CauseReservationOverflow)
	}

	if c.engine.Occupancy(target) == capacity {
		if inTown && !v.Waiting {
			v.Waiting = true
			c.state.Stats.NoPark++
		}
		if pending.take(target) {
			return nil
		}
		return c.overflow(ctx, v, stop, tick, search.FreeParkAware, model.CausePhysicalOverflow)
	}
	return nil
}

// overflow searches an alternative for a contended target and redirects on
// success. Exhaustion leaves the plan untouched.
func (c *Controller) overflow(ctx context.Context, v *model.Vehicle, stop model.Stop, tick int, mode search.Mode, cause model.Cause) error {
	tier := c.state.Registry.Tier(stop.Facility)
	var res search.Result
	if tier.InTown() {
		res = c.searcher.Search(mode, tier, tick)
		if res.Escalated {
			c.state.Stats.NotFound++
			searchExhausted.WithLabelValues("in_town").Inc()
		}
	} else {
		res = c.searcher.OutOfTown(tick)
	}
	if !res.Found() {
		c.state.Stats.Unresolved++
		searchExhausted.WithLabelValues("all").Inc()
		return nil
	}
	return c.redirect(ctx, v, stop, res.Facility, tick, cause)
}

// toOutOfTown handles a gate rejection. It reports whether the vehicle was
// redirected.
func (c *Controller) toOutOfTown(ctx context.Context, v *model.Vehicle, stop model.Stop, tick int, cause model.Cause) (bool, error) {
	res := c.searcher.OutOfTown(tick)
	if !res.Found() {
		c.state.Stats.Unresolved++
		searchExhausted.WithLabelValues("out_of_town").Inc()
		return false, nil
	}
	return true, c.redirect(ctx, v, stop, res.Facility, tick, cause)
}

// redirect commits a new facility for the current stop. The engine is
// updated first so that a rejected redirection leaves every ledger intact.
func (c *Controller) redirect(ctx context.Context, v *model.Vehicle, stop model.Stop, to model.FacilityID, tick int, cause model.Cause) error {
	idx := v.Plan.Index()
	from := stop.Facility
	if from == to {
		return nil
	}
	if err := c.engine.RedirectStop(v.ID, idx, to, stop.Duration); err != nil {
		return fmt.Errorf("redirect %s stop %d: %w", v.ID, idx, err)
	}
	if v.HasReservation {
		if err := c.state.Ledger.Transfer(v.LastFacility, to); err != nil {
			return err
		}
	}
	if err := v.Plan.Redirect(idx, to); err != nil {
		return err
	}
	v.LastFacility = to
	v.Waiting = false
	if !v.Redirected {
		v.Redirected = true
		c.state.Stats.ChangedRoute++
	}
	c.state.Stats.Redirects[cause]++
	redirectsTotal.WithLabelValues(cause.String()).Inc()

	c.publish(events.RedirectEvent{
		VehicleID: v.ID,
		StopIndex: idx,
		From:      from,
		To:        to,
		Cause:     cause,
		Tick:      tick,
	})
	c.trace(ctx, logging.Record{
		Tick:      tick,
		Kind:      logging.KindRedirect,
		VehicleID: v.ID,
		From:      from.String(),
		To:        to.String(),
		Cause:     cause.String(),
		Rating:    v.Rating,
		Wallet:    v.Wallet,
	})
	c.log.Debugw("redirect", logger.Fields{
		"vehicle": v.ID,
		"from":    from.String(),
		"to":      to.String(),
		"cause":   cause.String(),
		"tick":    tick,
	})
	return nil
}

// onStopped handles the first observation of a vehicle parked at its current
// stop.
func (c *Controller) onStopped(ctx context.Context, v *model.Vehicle, tick int) error {
	stop, ok := v.Plan.Current()
	if !ok {
		v.Phase = model.Stopped
		return nil
	}
	delay, err := strconv.Atoi(c.engine.VehicleParams(v.ID)[model.ParamDelay])
	if err != nil {
		delay = 0
	}
	v.Delay = delay

	if c.state.Registry.Tier(stop.Facility).InTown() {
		c.state.Reputation.Commit(v)
		if err := c.engine.SetVehicleParams(v.ID, v.Params()); err != nil {
			return fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		v.ScheduledDeparture = tick + stop.Duration - delay
	} else {
		v.PendingDebit = false
		v.ScheduledDeparture = 0
	}

	v.Parks++
	c.state.Stats.Parks++
	v.Plan.Advance()
	v.Phase = model.Stopped
	v.Waiting = false

	c.trace(ctx, logging.Record{
		Tick:      tick,
		Kind:      logging.KindPark,
		VehicleID: v.ID,
		To:        stop.Facility.String(),
		Delay:     delay,
		Wallet:    v.Wallet,
		Rating:    v.Rating,
	})
	return nil
}
