package admission

import "github.com/prometheus/client_golang/prometheus"

var (
	redirectsTotal  *prometheus.CounterVec
	searchExhausted *prometheus.CounterVec
	stepLatency     prometheus.Histogram
	reservations    prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge) {
	red := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_redirects_total",
			Help: "Committed redirections by cause",
		},
		[]string{"cause"},
	)
	exh := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_search_exhausted_total",
			Help: "Facility searches without an admitting facility",
		},
		[]string{"scope"},
	)
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admission_tick_duration_seconds",
			Help:    "Wall time spent deciding one tick",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)
	res := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "admission_reservations",
			Help: "Active reservations after the last tick",
		},
	)
	return red, exh, lat, res
}

func init() {
	redirectsTotal, searchExhausted, stepLatency, reservations = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers admission metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(redirectsTotal, searchExhausted, stepLatency, reservations)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	redirectsTotal, searchExhausted, stepLatency, reservations = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
