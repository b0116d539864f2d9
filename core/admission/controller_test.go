package admission

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/parkctl/core/admission/logging"
	"github.com/kilianp07/parkctl/core/events"
	"github.com/kilianp07/parkctl/core/freeslot"
	"github.com/kilianp07/parkctl/core/model"
	"github.com/kilianp07/parkctl/core/registry"
	"github.com/kilianp07/parkctl/core/reputation"
	"github.com/kilianp07/parkctl/infra/logger"
	"github.com/kilianp07/parkctl/internal/eventbus"
	"github.com/kilianp07/parkctl/scenario"
)

func fid(t model.Tier, row int, dir model.Direction) model.FacilityID {
	return model.FacilityID{Tier: t, Row: row, Dir: dir}
}

var (
	town0    = fid(model.TierTown, 0, model.Positive)
	town1    = fid(model.TierTown, 1, model.Positive)
	outTown3 = fid(model.TierOutOfTown, 3, model.Positive)
)

type fixture struct {
	state *State
	eng   *fakeEngine
	ctrl  *Controller
	rec   *Reconciler
	bus   *eventbus.Bus
}

func newFixture(t *testing.T, override int) *fixture {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	reg, err := registry.New(registry.Config{TownRows: 2, SlotsPerRow: 10, OutOfTownSlots: 10, FleetSize: 80})
	require.NoError(t, err)
	policy := freeslot.DefaultConfig()
	policy.OverrideHeadroom = override
	state := NewState(reg, policy, reputation.DefaultPricing())
	eng := newFakeEngine()
	eng.tick = 500
	bus := eventbus.NewWithBuffer(64)
	hooks := Hooks{RunID: "test", Bus: bus}
	return &fixture{
		state: state,
		eng:   eng,
		ctrl:  NewController(state, eng, logger.NopLogger{}, hooks),
		rec:   NewReconciler(state, eng, logger.NopLogger{}, hooks),
		bus:   bus,
	}
}

// addVehicle registers a vehicle with one lead waypoint and the given stops.
func (fx *fixture) addVehicle(t *testing.T, id string, rating, wallet int, good bool, stops ...model.Stop) *model.Vehicle {
	t.Helper()
	all := append([]model.Stop{{Facility: stops[0].Facility}}, stops...)
	v := model.Vehicle{ID: id, Rating: rating, Wallet: wallet, GoodBehavior: good}
	v.Plan = model.NewPlan(all, 1)
	fx.eng.add(id, v.Params(), all...)
	require.NoError(t, fx.state.AddVehicle(v))
	rec, ok := fx.state.Vehicle(id)
	require.True(t, ok)
	return rec
}

// hold reserves n slots at f through parked placeholder vehicles so that the
// holder invariant stays balanced.
func (fx *fixture) hold(t *testing.T, f model.FacilityID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := f.String() + "-holder-" + string(rune('a'+i))
		require.NoError(t, fx.state.Ledger.Reserve(f))
		require.NoError(t, fx.state.AddVehicle(model.Vehicle{ID: id, HasReservation: true, LastFacility: f, Phase: model.Stopped}))
	}
}

func (fx *fixture) step(t *testing.T, pending Pending) {
	t.Helper()
	require.NoError(t, fx.ctrl.Step(context.Background(), pending))
	require.NoError(t, fx.state.Verify())
}

func TestReservationOverflowSelectsNextRow(t *testing.T) {
	fx := newFixture(t, 3)
	fx.hold(t, town0, 7)
	fx.hold(t, town0.Mirrored(), 7)
	fx.hold(t, town1, 2)
	v := fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})
	sub := fx.bus.Subscribe()

	fx.step(t, Pending{})

	assert.Equal(t, 7, fx.state.Ledger.Count(town0))
	assert.Equal(t, 3, fx.state.Ledger.Count(town1))
	assert.Equal(t, town1, v.LastFacility)
	assert.True(t, v.HasReservation)
	stop, _ := v.Plan.Current()
	assert.Equal(t, town1, stop.Facility)
	require.Len(t, fx.eng.redirects, 1)
	assert.Equal(t, redirectCall{ID: "veh0001", Index: 1, Facility: town1, Duration: 300}, fx.eng.redirects[0])
	assert.Equal(t, 1, fx.state.Stats.Redirects[model.CauseReservationOverflow])
	assert.Equal(t, 1, fx.state.Stats.ChangedRoute)
	assert.Equal(t, 1.0, testutil.ToFloat64(redirectsTotal.WithLabelValues("reservation_overflow")))

	ev := (<-sub).(events.RedirectEvent)
	assert.Equal(t, town0, ev.From)
	assert.Equal(t, town1, ev.To)
	assert.Equal(t, 500, ev.Tick)
}

func TestReservationOverflowWaitsForPendingDeparture(t *testing.T) {
	fx := newFixture(t, 3)
	fx.hold(t, town0, 7)
	v := fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})
	pending := Pending{town0: 1}

	fx.step(t, pending)

	assert.Equal(t, 8, fx.state.Ledger.Count(town0))
	assert.Equal(t, town0, v.LastFacility)
	assert.Empty(t, fx.eng.redirects)
	assert.Equal(t, 0, pending[town0], "pending departure is consumed")
}

func TestChargeCommittedWhenStopped(t *testing.T) {
	fx := newFixture(t, 3)
	v := fx.addVehicle(t, "veh0001", 2, 50, true, model.Stop{Facility: town0, Duration: 800})

	fx.step(t, Pending{})
	assert.Equal(t, 50, v.Wallet, "debit waits for the vehicle to park")
	assert.True(t, v.PendingDebit)
	assert.Equal(t, 1, fx.state.Ledger.Count(town0))

	fx.eng.tick = 510
	fx.eng.stopped["veh0001"] = true
	fx.step(t, Pending{})

	assert.Equal(t, 40, v.Wallet)
	assert.False(t, v.PendingDebit)
	assert.Equal(t, model.Stopped, v.Phase)
	assert.Equal(t, 510+800, v.ScheduledDeparture)
	assert.Equal(t, "40", fx.eng.params["veh0001"][model.ParamWallet])
	assert.Equal(t, 2, v.Plan.Index())
	assert.Equal(t, 1, fx.state.Stats.Parks)
}

func TestInsufficientFundsRedirectsOutOfTown(t *testing.T) {
	fx := newFixture(t, 3)
	v := fx.addVehicle(t, "veh0001", 2, 5, true, model.Stop{Facility: town0, Duration: 800})

	fx.step(t, Pending{})

	assert.Equal(t, 5, v.Wallet)
	assert.False(t, v.PendingDebit)
	assert.False(t, v.HasReservation, "reservation is taken on the next tick")
	stop, _ := v.Plan.Current()
	assert.Equal(t, outTown3, stop.Facility)
	assert.Equal(t, 1, fx.state.Stats.Redirects[model.CauseInsufficientFunds])
	assert.Equal(t, 0, fx.state.Ledger.Sum())

	fx.step(t, Pending{})
	assert.True(t, v.HasReservation)
	assert.Equal(t, 1, fx.state.Ledger.Count(outTown3))
	assert.Len(t, fx.eng.redirects, 1)
}

func TestBarredVehicleRedirectsOutOfTown(t *testing.T) {
	fx := newFixture(t, 3)
	v := fx.addVehicle(t, "veh0001", 2, 100, false, model.Stop{Facility: town0, Duration: 300})

	fx.step(t, Pending{})

	stop, _ := v.Plan.Current()
	assert.Equal(t, outTown3, stop.Facility)
	assert.Equal(t, 1, fx.state.Stats.Redirects[model.CauseReputationBarred])
	assert.True(t, v.GoodBehavior)
	assert.Equal(t, 100, v.Wallet)
}

func TestOutOfTownStopSkipsGate(t *testing.T) {
	fx := newFixture(t, 3)
	v := fx.addVehicle(t, "veh0001", 0, 0, false, model.Stop{Facility: outTown3, Duration: 900})

	fx.step(t, Pending{})
	assert.True(t, v.HasReservation)
	assert.Empty(t, fx.eng.redirects)

	fx.eng.stopped["veh0001"] = true
	fx.step(t, Pending{})
	assert.Equal(t, 0, v.Wallet)
	assert.Equal(t, 0, v.ScheduledDeparture)
}

func TestPhysicalOverflowUsesFreeParkSearch(t *testing.T) {
	fx := newFixture(t, 3)
	fx.eng.occ[town0] = 10
	v := fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})

	fx.step(t, Pending{})

	assert.Equal(t, town0.Mirrored(), v.LastFacility)
	assert.Equal(t, 0, fx.state.Ledger.Count(town0))
	assert.Equal(t, 1, fx.state.Ledger.Count(town0.Mirrored()))
	assert.Equal(t, 1, fx.state.Stats.Redirects[model.CausePhysicalOverflow])
	assert.Equal(t, 1, fx.state.Stats.NoPark)
}

func TestPhysicalOverflowWaitsForPendingDeparture(t *testing.T) {
	fx := newFixture(t, 3)
	fx.eng.occ[town0] = 10
	v := fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})

	fx.step(t, Pending{town0: 1})
	fx.step(t, Pending{town0: 1})

	assert.Equal(t, town0, v.LastFacility)
	assert.Empty(t, fx.eng.redirects)
	assert.Equal(t, 1, fx.state.Stats.NoPark, "one wait is counted once")
}

func TestPhysicalOverflowNeedsExactCapacity(t *testing.T) {
	fx := newFixture(t, 3)
	fx.eng.occ[town0] = 9
	fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})

	fx.step(t, Pending{})
	assert.Empty(t, fx.eng.redirects)
}

func TestExhaustedSearchKeepsPlan(t *testing.T) {
	fx := newFixture(t, 3)
	for _, f := range fx.state.Registry.Facilities() {
		fx.eng.occ[f.ID] = f.Capacity
	}
	v := fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})

	fx.step(t, Pending{})

	assert.Equal(t, town0, v.LastFacility)
	assert.Empty(t, fx.eng.redirects)
	assert.Equal(t, 1, fx.state.Stats.NotFound)
	assert.Equal(t, 1, fx.state.Stats.Unresolved)
}

func TestRedirectFailureLeavesLedgerIntact(t *testing.T) {
	fx := newFixture(t, 3)
	fx.hold(t, town0, 7)
	fx.hold(t, town0.Mirrored(), 7)
	fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})
	fx.eng.failNext = errors.New("engine down")

	err := fx.ctrl.Step(context.Background(), Pending{})
	require.Error(t, err)
	assert.Equal(t, 8, fx.state.Ledger.Count(town0))
	assert.NoError(t, fx.state.Verify())
}

func TestUnknownVehicleIsMalformed(t *testing.T) {
	fx := newFixture(t, 3)
	fx.eng.active = []string{"ghost"}
	err := fx.ctrl.Step(context.Background(), Pending{})
	assert.ErrorIs(t, err, scenario.ErrMalformed)
}

func TestStepTracesRedirects(t *testing.T) {
	fx := newFixture(t, 3)
	store := &memStore{}
	fx.ctrl = NewController(fx.state, fx.eng, logger.NopLogger{}, Hooks{RunID: "r1", Trace: store})
	fx.eng.occ[town0] = 10
	fx.addVehicle(t, "veh0001", 3, 100, true, model.Stop{Facility: town0, Duration: 300})

	fx.step(t, Pending{})

	require.Len(t, store.recs, 1)
	assert.Equal(t, logging.KindRedirect, store.recs[0].Kind)
	assert.Equal(t, "r1", store.recs[0].RunID)
	assert.Equal(t, "ParkArea-0", store.recs[0].To)
	assert.Equal(t, "physical_overflow", store.recs[0].Cause)
}

type memStore struct {
	recs []logging.Record
}

func (m *memStore) Append(_ context.Context, r logging.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q logging.Query) ([]logging.Record, error) {
	var out []logging.Record
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }
