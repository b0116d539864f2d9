package admission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/parkctl/core/admission"
	"github.com/kilianp07/parkctl/core/freeslot"
	"github.com/kilianp07/parkctl/core/ledger"
	"github.com/kilianp07/parkctl/core/model"
	"github.com/kilianp07/parkctl/core/registry"
	"github.com/kilianp07/parkctl/core/reputation"
	"github.com/kilianp07/parkctl/engine"
	"github.com/kilianp07/parkctl/infra/logger"
	"github.com/kilianp07/parkctl/scenario"
)

type outcome struct {
	stats    admission.Stats
	tick     int
	snapshot []ledger.Entry
	wallets  map[string]int
}

func smallScenario(t *testing.T) *scenario.Descriptor {
	t.Helper()
	cfg := scenario.DefaultGenerateConfig()
	cfg.Good, cfg.Bad = 12, 12
	cfg.Stops = 5
	desc, err := scenario.Generate(cfg)
	require.NoError(t, err)
	return desc
}

func run(t *testing.T, desc *scenario.Descriptor, policy freeslot.Config) outcome {
	t.Helper()
	reg, err := registry.New(registry.Config{TownRows: 2, SlotsPerRow: 10, OutOfTownSlots: 10, FleetSize: len(desc.Vehicles)})
	require.NoError(t, err)
	eng, err := engine.New(engine.Config{TravelTicks: 30, MaxTicks: 100000}, desc, reg)
	require.NoError(t, err)

	state := admission.NewState(reg, policy, reputation.DefaultPricing())
	require.NoError(t, state.Load(desc, eng))
	ctrl := admission.NewController(state, eng, logger.NopLogger{}, admission.Hooks{RunID: "test"})
	rec := admission.NewReconciler(state, eng, logger.NopLogger{}, admission.Hooks{RunID: "test"})

	ctx := context.Background()
	for eng.Remaining() > 0 {
		require.NoError(t, eng.Advance(ctx))
		pending, err := rec.Process(ctx)
		require.NoError(t, err)
		require.NoError(t, ctrl.Step(ctx, pending))
		require.NoError(t, state.Verify(), "tick %d", eng.Tick())
		for _, e := range state.Ledger.Snapshot() {
			require.GreaterOrEqual(t, e.Count, 0)
		}
	}

	wallets := make(map[string]int)
	for _, v := range state.Vehicles() {
		require.NoError(t, v.Validate())
		wallets[v.ID] = v.Wallet
	}
	return outcome{stats: *state.Stats, tick: eng.Tick(), snapshot: state.Ledger.Snapshot(), wallets: wallets}
}

func TestRunKeepsLedgerBalanced(t *testing.T) {
	out := run(t, smallScenario(t), freeslot.DefaultConfig())

	assert.Positive(t, out.tick)
	assert.Positive(t, out.stats.Parks)
	assert.Equal(t, out.stats.Ends+out.stats.Evictions, out.stats.TotalEnds())
	for _, e := range out.snapshot {
		assert.Equal(t, 0, e.Count, "every reservation is released at the end")
	}
	for id, w := range out.wallets {
		assert.GreaterOrEqual(t, w, 0, id)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	a := run(t, smallScenario(t), freeslot.DefaultConfig())
	b := run(t, smallScenario(t), freeslot.DefaultConfig())
	assert.Equal(t, a, b)
}

func TestRunWithOverride(t *testing.T) {
	policy := freeslot.DefaultConfig()
	policy.OverrideHeadroom = 0
	out := run(t, smallScenario(t), policy)
	assert.Positive(t, out.stats.Parks)
	total := 0
	for _, c := range model.Causes {
		total += out.stats.Redirects[c]
	}
	assert.Equal(t, out.stats.TotalRedirects(), total)
}
