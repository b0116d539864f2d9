package freeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/parkctl/core/model"
)

var (
	town = model.FacilityID{Tier: model.TierTown, Row: 0, Dir: model.Positive}
	oot  = model.FacilityID{Tier: model.TierOutOfTown, Row: 3, Dir: model.Positive}
)

func TestHeadroomPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultHeadroom = 2
	cfg.BootstrapHeadroom = 4
	p := New(cfg)

	assert.Equal(t, 0, p.Headroom(oot, 0), "out of town never carries headroom")
	assert.Equal(t, 4, p.Headroom(town, 99), "bootstrap window")
	assert.Equal(t, 2, p.Headroom(town, 100), "default after bootstrap")

	p.CreditMisbehavior(town)
	assert.Equal(t, 1, p.Headroom(town, 100))
	assert.Equal(t, 4, p.Headroom(town, 50), "bootstrap wins over credits")

	cfg.OverrideHeadroom = 5
	o := New(cfg)
	assert.Equal(t, 5, o.Headroom(town, 0))
	assert.Equal(t, 5, o.Headroom(town, 1000))
	assert.Equal(t, 0, o.Headroom(oot, 1000))
}

func TestCreditMisbehaviorCapped(t *testing.T) {
	p := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		p.CreditMisbehavior(town)
	}
	c, ok := p.Credit(town)
	require.True(t, ok)
	assert.Equal(t, 3, c)
	assert.Equal(t, 10, p.Misbehavior(town))
}

func TestResetCycle(t *testing.T) {
	p := New(DefaultConfig())
	assert.Equal(t, 800, p.Config().RefreshPeriod())
	p.CreditMisbehavior(town)
	assert.Equal(t, 1, p.Headroom(town, 500))

	for _, tick := range []int{0, 800, 1600} {
		assert.True(t, p.IsRefreshBoundary(tick))
	}
	assert.False(t, p.IsRefreshBoundary(799))

	p.ResetCycle()
	_, ok := p.Credit(town)
	assert.False(t, ok)
	assert.Zero(t, p.Misbehavior(town))
	assert.Equal(t, 3, p.Headroom(town, 801))
	assert.Equal(t, 3, p.Headroom(town, 10))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.SlotDuration = 0
	assert.Error(t, bad.Validate())
	bad = DefaultConfig()
	bad.OverrideHeadroom = -2
	assert.Error(t, bad.Validate())
	bad = DefaultConfig()
	bad.MaxDuration = 1
	bad.SlotDuration = 1
	bad.RefreshDivisor = 3
	assert.Error(t, bad.Validate(), "period rounds to zero")
}
