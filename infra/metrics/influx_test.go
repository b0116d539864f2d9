package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/model"
)

type capture struct {
	mu     sync.Mutex
	bodies []string
}

func (c *capture) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, strings.TrimSpace(string(data)))
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

var (
	town0    = model.FacilityID{Tier: model.TierTown, Row: 0, Dir: model.Positive}
	outTown3 = model.FacilityID{Tier: model.TierOutOfTown, Row: 3, Dir: model.Positive}
)

func TestInfluxSink_RecordRedirect(t *testing.T) {
	c := &capture{}
	sink := NewInfluxSink(c.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	require.NoError(t, sink.RecordRedirect(coremetrics.RedirectEvent{
		RunID: "r1", VehicleID: "veh0001", From: town0, To: outTown3,
		Cause: model.CauseInsufficientFunds, Tick: 42, Time: now,
	}))

	p := write.NewPointWithMeasurement("redirect").
		AddTag("run_id", "r1").
		AddTag("vehicle_id", "veh0001").
		AddTag("cause", "insufficient_funds").
		AddTag("from", "ParkArea0").
		AddTag("to", "ParkAreaOutOfTown3").
		AddField("tick", 42).
		SetTime(now)
	require.Len(t, c.bodies, 1)
	assert.Equal(t, line(p), c.bodies[0])
}

func TestInfluxSink_RecordTick(t *testing.T) {
	c := &capture{}
	sink := NewInfluxSink(c.server(t).URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	require.NoError(t, sink.RecordTick(coremetrics.TickEvent{
		RunID: "r1", Tick: 7, Active: 5, Stopped: 2, Reservations: 4,
		Occupancy: map[model.Tier]int{model.TierTown: 2},
		Capacity:  map[model.Tier]int{model.TierTown: 40},
		Time:      now,
	}))

	require.Len(t, c.bodies, 1)
	lines := strings.Split(c.bodies[0], "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "parking_state,run_id=r1 "))
	assert.Contains(t, lines[1], "parking_tier,run_id=r1,tier=ParkArea ")
	assert.Contains(t, lines[1], "occupancy=2i")
	assert.Contains(t, lines[1], "capacity=40i")
}

func TestInfluxSink_RecordRun(t *testing.T) {
	c := &capture{}
	sink := NewInfluxSink(c.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	require.NoError(t, sink.RecordRun(coremetrics.RunEvent{
		RunID: "r1", Scenario: "reference", FinalTick: 100,
		Redirects: map[model.Cause]int{model.CausePhysicalOverflow: 3},
		Time:      time.Now(),
	}))
	require.Len(t, c.bodies, 1)
	assert.Contains(t, c.bodies[0], "redirects_physical_overflow=3i")
	assert.Contains(t, c.bodies[0], "redirects_reputation_barred=0i")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
