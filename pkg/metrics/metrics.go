// Package metrics exposes Prometheus instruments for geocoding, the wizard
// and the session store. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/trikefare/pkg/version"
)

const namespace = "trikefare"

// Metrics holds the instruments, registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	geocodeRequests *prometheus.CounterVec
	geocodeInFlight prometheus.Gauge
	geocodeDuration prometheus.Histogram

	fareEstimates *prometheus.CounterVec
	warnings      *prometheus.CounterVec

	sessionsActive prometheus.Gauge
}

// New creates and registers the instruments. Process and Go runtime
// collectors are included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	info := version.Info()
	f.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build metadata, always 1",
		ConstLabels: prometheus.Labels(info),
	}).Set(1)

	return &Metrics{
		registry: reg,

		geocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "requests_total",
			Help:      "Reverse geocoding lookups by outcome",
		}, []string{"outcome"}),

		geocodeInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "in_flight",
			Help:      "Reverse geocoding lookups currently running",
		}),

		geocodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "duration_seconds",
			Help:      "Reverse geocoding latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		fareEstimates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fare_estimates_total",
			Help:      "Fares computed, by passenger count",
		}, []string{"passengers"}),

		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Rejected user actions by warning kind",
		}, []string{"kind"}),

		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live wizard sessions",
		}),
	}
}

// Registry returns the registry the instruments live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveGeocode records one finished reverse lookup
func (m *Metrics) ObserveGeocode(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.geocodeRequests.WithLabelValues(status).Inc()
	m.geocodeDuration.Observe(d.Seconds())
}

// Start marks a lookup as in flight
func (m *Metrics) Start() {
	if m == nil {
		return
	}
	m.geocodeInFlight.Inc()
}

// Stop marks a lookup as finished
func (m *Metrics) Stop() {
	if m == nil {
		return
	}
	m.geocodeInFlight.Dec()
}

// ObserveWarning counts a rejected action
func (m *Metrics) ObserveWarning(kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind).Inc()
}

// ObserveFare counts a computed fare
func (m *Metrics) ObserveFare(passengers int) {
	if m == nil {
		return
	}
	m.fareEstimates.WithLabelValues(strconv.Itoa(passengers)).Inc()
}

// SetSessions sets the live session gauge
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}
