package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/parkctl/core/model"
)

func TestOutOfTownRows(t *testing.T) {
	assert.Equal(t, 4, OutOfTownRows(0))
	assert.Equal(t, 4, OutOfTownRows(80))
	assert.Equal(t, 5, OutOfTownRows(81))
	assert.Equal(t, 10, OutOfTownRows(200))
}

func TestRegistryLayout(t *testing.T) {
	r, err := New(Config{TownRows: 2, SlotsPerRow: 10, OutOfTownSlots: 12, FleetSize: 80})
	require.NoError(t, err)

	assert.Len(t, r.Facilities(), 2*2+2*2+4*2)
	assert.Equal(t, []int{0, 1}, r.Rows(model.TierTown))
	assert.Equal(t, []int{0, 1}, r.Rows(model.TierAlternative))
	assert.Equal(t, []int{3, 2, 1, 0}, r.Rows(model.TierOutOfTown))

	town := model.FacilityID{Tier: model.TierTown, Row: 1, Dir: model.Negative}
	assert.Equal(t, 10, r.Capacity(town))
	assert.Equal(t, model.TierTown, r.Tier(town))
	assert.Equal(t, model.Positive, r.Mirrored(town).Dir)

	oot := model.FacilityID{Tier: model.TierOutOfTown, Row: 3, Dir: model.Positive}
	assert.Equal(t, 12, r.Capacity(oot))

	missing := model.FacilityID{Tier: model.TierTown, Row: 7, Dir: model.Positive}
	assert.False(t, r.Contains(missing))
	assert.Zero(t, r.Capacity(missing))
	assert.Equal(t, model.TierUnknown, r.Tier(missing))
	assert.Len(t, r.TierFacilities(model.TierOutOfTown), 8)
}

func TestRegistryRejectsBadConfig(t *testing.T) {
	_, err := New(Config{TownRows: 0, SlotsPerRow: 10, OutOfTownSlots: 10})
	assert.Error(t, err)
	_, err = New(Config{TownRows: 2, SlotsPerRow: 0, OutOfTownSlots: 10})
	assert.Error(t, err)
}
