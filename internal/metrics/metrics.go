// Package metrics exposes Prometheus instrumentation for the quality-gate
// service: run/module counts by status, active watcher count, and module
// execution duration. Registered on a dedicated prometheus.Registry rather
// than the default global one, so embedding this module in another process
// never collides with its own metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus descriptor the service records against.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec
	ModuleRunsTotal     *prometheus.CounterVec
	ModuleDuration      *prometheus.HistogramVec
	ActiveWatchers      prometheus.Gauge
	ActiveAnalyses      prometheus.Gauge
	WebsocketSubscribers prometheus.Gauge
}

// New creates and registers all quality-gate Prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qualitygate",
			Subsystem: "run",
			Name:      "total",
			Help:      "Total completed analysis runs, by final global status.",
		}, []string{"status", "mode"}),

		ModuleRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qualitygate",
			Subsystem: "module",
			Name:      "runs_total",
			Help:      "Total completed module invocations, by tool id and status.",
		}, []string{"tool", "status"}),

		ModuleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qualitygate",
			Subsystem: "module",
			Name:      "duration_seconds",
			Help:      "Module invocation wall-clock duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),

		ActiveWatchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qualitygate",
			Subsystem: "session",
			Name:      "active_watchers",
			Help:      "Number of sessions currently running a filesystem watcher.",
		}),

		ActiveAnalyses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qualitygate",
			Subsystem: "session",
			Name:      "active_analyses",
			Help:      "Number of sessions currently running a one-shot analysis.",
		}),

		WebsocketSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qualitygate",
			Subsystem: "websocket",
			Name:      "subscribers",
			Help:      "Current number of attached push-channel subscribers, across all sessions.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.ModuleRunsTotal,
		m.ModuleDuration,
		m.ActiveWatchers,
		m.ActiveAnalyses,
		m.WebsocketSubscribers,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// RecordRun records a completed analysis run's final status and mode.
func (m *Metrics) RecordRun(status, mode string) {
	m.RunsTotal.WithLabelValues(status, mode).Inc()
}

// RecordModule records a completed module invocation's status and duration.
func (m *Metrics) RecordModule(tool, status string, d time.Duration) {
	m.ModuleRunsTotal.WithLabelValues(tool, status).Inc()
	m.ModuleDuration.WithLabelValues(tool).Observe(d.Seconds())
}
