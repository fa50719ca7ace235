// Package observability defines the Prometheus metrics exported by
// aluconfig.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aluconfig"

// Metrics groups every collector. All methods are nil-safe so components
// can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	sessions      prometheus.Counter
	sessionWrites *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	watchers      prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Decision passes by outcome (question, match, no_match).",
		}, []string{"outcome"}),
		sessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions created by the session service.",
		}),
		sessionWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_writes_total",
			Help:      "Session persistence calls by operation and status.",
		}, []string{"op", "status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"route"}),
		watchers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers_active",
			Help:      "Open session watch connections.",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Decision counts one engine outcome.
func (m *Metrics) Decision(kind string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind).Inc()
}

// SessionStarted counts a created session.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionWrite counts one persistence call.
func (m *Metrics) SessionWrite(op, status string) {
	if m == nil {
		return
	}
	m.sessionWrites.WithLabelValues(op, status).Inc()
}

// Request records one served HTTP request.
func (m *Metrics) Request(route string, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, status).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// WatcherOpened and WatcherClosed track live watch connections.
func (m *Metrics) WatcherOpened() {
	if m == nil {
		return
	}
	m.watchers.Inc()
}

// WatcherClosed pairs with WatcherOpened.
func (m *Metrics) WatcherClosed() {
	if m == nil {
		return
	}
	m.watchers.Dec()
}
