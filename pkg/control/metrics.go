package control

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metric descriptors for the tick loop,
// scoped to what the single-writer loop can actually observe about itself
// each tick. Each Loop owns a private registry rather than the global
// default one, so standing up more than one Loop in a process (as the test
// suite does) never collides on metric names.
type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	tickDuration      prometheus.Histogram
	sessionsConnected *prometheus.GaugeVec
	scriptErrorsTotal prometheus.Counter
	uptimeSeconds     prometheus.Gauge
}

// NewMetrics creates and registers the loop's Prometheus metrics against a
// fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lodestone_tick_duration_seconds",
			Help:    "Duration of one simulation tick.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lodestone_sessions_connected",
			Help: "Number of currently connected sessions by transport.",
		}, []string{"transport"}),
		scriptErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lodestone_script_errors_total",
			Help: "Total script compile/runtime errors recorded since start.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lodestone_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
	}
	m.registry.MustRegister(m.tickDuration, m.sessionsConnected, m.scriptErrorsTotal, m.uptimeSeconds)
	return m
}

// ObserveTick records how long one tick took.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

// SetSessions updates the per-transport connected-session gauges.
func (m *Metrics) SetSessions(tcp, ws int) {
	m.sessionsConnected.WithLabelValues("tcp").Set(float64(tcp))
	m.sessionsConnected.WithLabelValues("websocket").Set(float64(ws))
}

// AddScriptErrors adds n newly-recorded script errors to the running total.
func (m *Metrics) AddScriptErrors(n int) {
	if n > 0 {
		m.scriptErrorsTotal.Add(float64(n))
	}
}

// Handler returns an http.Handler that refreshes derived gauges before
// serving the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
