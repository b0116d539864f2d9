package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/model"
)

// PromSink records admission state in Prometheus metrics.
type PromSink struct {
	occupancy    *prometheus.GaugeVec
	capacity     *prometheus.GaugeVec
	vehicles     *prometheus.GaugeVec
	reservations prometheus.Gauge
	tick         prometheus.Gauge
	redirects    *prometheus.CounterVec
	departures   *prometheus.CounterVec
	runs         *prometheus.CounterVec
}

// NewPromSink registers parking metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.occupancy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_occupancy",
		Help: "Vehicles parked per tier",
	}, []string{"tier"})); err != nil {
		return nil, err
	}
	if s.capacity, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_capacity",
		Help: "Slots per tier",
	}, []string{"tier"})); err != nil {
		return nil, err
	}
	if s.vehicles, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_vehicles",
		Help: "Vehicles in the run by phase",
	}, []string{"phase"})); err != nil {
		return nil, err
	}
	if s.reservations, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_reservations",
		Help: "Active reservations",
	})); err != nil {
		return nil, err
	}
	if s.tick, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parking_tick",
		Help: "Current simulation tick",
	})); err != nil {
		return nil, err
	}
	if s.redirects, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_redirects_total",
		Help: "Redirections by cause and destination tier",
	}, []string{"cause", "tier"})); err != nil {
		return nil, err
	}
	if s.departures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_departures_total",
		Help: "Departures by tier; evicted marks overstays",
	}, []string{"tier", "evicted"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_runs_total",
		Help: "Finished runs by scenario",
	}, []string{"scenario"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick sets the per-tier gauges.
func (s *PromSink) RecordTick(ev coremetrics.TickEvent) error {
	for tier, n := range ev.Occupancy {
		s.occupancy.WithLabelValues(tier.String()).Set(float64(n))
	}
	for tier, n := range ev.Capacity {
		s.capacity.WithLabelValues(tier.String()).Set(float64(n))
	}
	s.vehicles.WithLabelValues(model.Moving.String()).Set(float64(ev.Active - ev.Stopped))
	s.vehicles.WithLabelValues(model.Stopped.String()).Set(float64(ev.Stopped))
	s.reservations.Set(float64(ev.Reservations))
	s.tick.Set(float64(ev.Tick))
	return nil
}

// RecordRedirect increments the redirection counter.
func (s *PromSink) RecordRedirect(ev coremetrics.RedirectEvent) error {
	s.redirects.WithLabelValues(ev.Cause.String(), ev.To.Tier.String()).Inc()
	return nil
}

// RecordDeparture increments the departure counter.
func (s *PromSink) RecordDeparture(ev coremetrics.DepartureEvent) error {
	s.departures.WithLabelValues(ev.Facility.Tier.String(), strconv.FormatBool(ev.Evicted)).Inc()
	return nil
}

// RecordRun counts a finished run.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Scenario).Inc()
	return nil
}
