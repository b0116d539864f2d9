package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/parkctl/core/logger"
	coremetrics "github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/model"
	infralogger "github.com/kilianp07/parkctl/infra/logger"
)

// InfluxSink writes admission events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(points ...*write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordTick writes one point per tier plus the run-wide counters.
func (s *InfluxSink) RecordTick(ev coremetrics.TickEvent) error {
	points := []*write.Point{
		write.NewPointWithMeasurement("parking_state").
			AddTag("run_id", ev.RunID).
			AddField("tick", ev.Tick).
			AddField("active", ev.Active).
			AddField("stopped", ev.Stopped).
			AddField("reservations", ev.Reservations).
			SetTime(ev.Time),
	}
	for _, tier := range []model.Tier{model.TierTown, model.TierAlternative, model.TierOutOfTown} {
		capacity, ok := ev.Capacity[tier]
		if !ok {
			continue
		}
		points = append(points, write.NewPointWithMeasurement("parking_tier").
			AddTag("run_id", ev.RunID).
			AddTag("tier", tier.String()).
			AddField("tick", ev.Tick).
			AddField("occupancy", ev.Occupancy[tier]).
			AddField("capacity", capacity).
			SetTime(ev.Time))
	}
	return s.write(points...)
}

// RecordRedirect writes a committed redirection.
func (s *InfluxSink) RecordRedirect(ev coremetrics.RedirectEvent) error {
	p := write.NewPointWithMeasurement("redirect").
		AddTag("run_id", ev.RunID).
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("cause", ev.Cause.String()).
		AddTag("from", ev.From.String()).
		AddTag("to", ev.To.String()).
		AddField("tick", ev.Tick).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordDeparture writes a departure or an eviction.
func (s *InfluxSink) RecordDeparture(ev coremetrics.DepartureEvent) error {
	p := write.NewPointWithMeasurement("departure").
		AddTag("run_id", ev.RunID).
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("facility", ev.Facility.String()).
		AddTag("evicted", strconv.FormatBool(ev.Evicted)).
		AddField("delay", ev.Delay).
		AddField("tick", ev.Tick).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordRun writes the outcome of a finished run.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", ev.RunID).
		AddTag("scenario", ev.Scenario).
		AddField("final_tick", ev.FinalTick).
		AddField("never_parked", ev.NeverParked).
		AddField("duration_ms", ev.Duration.Milliseconds())
	for _, c := range model.Causes {
		p = p.AddField("redirects_"+c.String(), ev.Redirects[c])
	}
	return s.write(p.SetTime(ev.Time))
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }
