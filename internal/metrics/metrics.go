// Package metrics exposes Prometheus counters for the dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deeptrace"

// Metrics holds the dashboard's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	themeApplied     *prometheus.CounterVec
	themeToggles     prometheus.Counter
	storageFailures  *prometheus.CounterVec
	analysisRequests *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		themeApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "theme",
			Name:      "applied_total",
			Help:      "Theme applications by resulting theme.",
		}, []string{"theme"}),
		themeToggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "theme",
			Name:      "toggles_total",
			Help:      "Theme toggles.",
		}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "theme",
			Name:      "storage_failures_total",
			Help:      "Preference store failures recovered in memory, by operation.",
		}, []string{"op"}),
		analysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Analysis service requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "request_duration_seconds",
			Help:      "Analysis service request latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"mode"}),
	}

	m.registry.MustRegister(
		m.themeApplied,
		m.themeToggles,
		m.storageFailures,
		m.analysisRequests,
		m.analysisDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ThemeApplied counts an applied theme.
func (m *Metrics) ThemeApplied(value string) {
	m.themeApplied.WithLabelValues(value).Inc()
}

// ThemeToggled counts a toggle.
func (m *Metrics) ThemeToggled() {
	m.themeToggles.Inc()
}

// StorageFailed counts a recovered preference store failure.
func (m *Metrics) StorageFailed(op string) {
	m.storageFailures.WithLabelValues(op).Inc()
}

// AnalysisObserved records one analysis request.
func (m *Metrics) AnalysisObserved(mode, outcome string, d time.Duration) {
	m.analysisRequests.WithLabelValues(mode, outcome).Inc()
	m.analysisDuration.WithLabelValues(mode).Observe(d.Seconds())
}
