package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/model"
)

func TestPromSink_RecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordTick(coremetrics.TickEvent{
		Tick: 12, Active: 5, Stopped: 2, Reservations: 4,
		Occupancy: map[model.Tier]int{model.TierTown: 2, model.TierOutOfTown: 1},
		Capacity:  map[model.Tier]int{model.TierTown: 40, model.TierOutOfTown: 80},
	}))

	expected := `
# HELP parking_occupancy Vehicles parked per tier
# TYPE parking_occupancy gauge
parking_occupancy{tier="ParkArea"} 2
parking_occupancy{tier="ParkAreaOutOfTown"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.occupancy, strings.NewReader(expected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.vehicles.WithLabelValues("moving")))
	assert.Equal(t, 4.0, testutil.ToFloat64(sink.reservations))
	assert.Equal(t, 12.0, testutil.ToFloat64(sink.tick))
}

func TestPromSink_RecordRedirectAndDeparture(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordRedirect(coremetrics.RedirectEvent{Cause: model.CauseReservationOverflow, From: town0, To: outTown3}))
	require.NoError(t, sink.RecordDeparture(coremetrics.DepartureEvent{Facility: town0, Evicted: true}))
	require.NoError(t, sink.RecordRun(coremetrics.RunEvent{Scenario: "reference"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.redirects.WithLabelValues("reservation_overflow", "ParkAreaOutOfTown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.departures.WithLabelValues("ParkArea", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("reference")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordRun(coremetrics.RunEvent{Scenario: "a"}))
	require.NoError(t, second.RecordRun(coremetrics.RunEvent{Scenario: "a"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(second.runs.WithLabelValues("a")))
}
