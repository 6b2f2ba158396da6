// Package monitoring exposes kioskd Prometheus metrics.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	Mode          prometheus.Gauge
	ManagedApps   prometheus.Gauge
	LaunchedTotal prometheus.Counter
	PrunedTotal   prometheus.Counter

	// Heartbeat metrics
	Heartbeats *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics set on its own registry.
// keysBlocked is read at scrape time so the hook callback stays counter-only.
func NewMetrics(keysBlocked func() uint64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		Mode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kioskd_mode",
			Help: "Current kiosk mode (0=disabled, 1=strict, 2=permissive)",
		}),
		ManagedApps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kioskd_managed_apps",
			Help: "Managed applications currently tracked",
		}),
		LaunchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kioskd_apps_launched_total",
			Help: "Managed applications launched",
		}),
		PrunedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kioskd_apps_pruned_total",
			Help: "Managed applications removed after exiting",
		}),
		Heartbeats: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kioskd_heartbeats_total",
				Help: "Heartbeats sent, by result",
			},
			[]string{"result"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kioskd_http_requests_total",
				Help: "Control API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kioskd_http_request_duration_seconds",
				Help:    "Control API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	if keysBlocked != nil {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Name: "kioskd_keys_blocked_total",
			Help: "Keyboard events swallowed by the kiosk hook",
		}, func() float64 { return float64(keysBlocked()) })
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry (for tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ModeChanged records the engine mode and managed app count.
func (m *Metrics) ModeChanged(mode domain.KioskMode, managedApps int) {
	m.Mode.Set(float64(mode))
	m.ManagedApps.Set(float64(managedApps))
}

// AppLaunched counts one launch.
func (m *Metrics) AppLaunched() {
	m.LaunchedTotal.Inc()
}

// AppsPruned counts exited apps removed by a prune.
func (m *Metrics) AppsPruned(n int) {
	if n > 0 {
		m.PrunedTotal.Add(float64(n))
	}
}

// RecordHeartbeat counts a heartbeat by outcome.
func (m *Metrics) RecordHeartbeat(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Heartbeats.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one control API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
