// Package metrics provides the Prometheus metrics of the playout server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playout server.
type Metrics struct {
	registry            *prometheus.Registry
	commandsTotal       *prometheus.CounterVec
	rpcRequestsTotal    *prometheus.CounterVec
	scheduleActivations prometheus.Counter
	prepareDuration     prometheus.Histogram
	playingGroups       prometheus.Gauge
	subscribers         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the playout server.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	commandsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cuebox_commands_total",
		Help: "Total number of playout commands by operation and result",
	}, []string{"op", "result"})
	rpcRequestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cuebox_rpc_requests_total",
		Help: "Total number of RPC requests by procedure and code",
	}, []string{"procedure", "code"})
	scheduleActivations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cuebox_schedule_activations_total",
		Help: "Total number of scheduled group starts",
	})
	prepareDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cuebox_prepare_duration_seconds",
		Help:    "Time spent preparing play data for a group",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
	playingGroups := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cuebox_playing_groups",
		Help: "Number of groups with at least one part playing",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cuebox_event_subscribers",
		Help: "Number of active event subscribers",
	})

	registry.MustRegister(
		commandsTotal,
		rpcRequestsTotal,
		scheduleActivations,
		prepareDuration,
		playingGroups,
		subscribers,
	)

	return &Metrics{
		registry:            registry,
		commandsTotal:       commandsTotal,
		rpcRequestsTotal:    rpcRequestsTotal,
		scheduleActivations: scheduleActivations,
		prepareDuration:     prepareDuration,
		playingGroups:       playingGroups,
		subscribers:         subscribers,
	}
}

// IncCommands increments the command counter for the operation and result.
func (m *Metrics) IncCommands(op, result string) {
	m.commandsTotal.WithLabelValues(op, result).Inc()
}

// IncRPCRequests increments the RPC request counter.
func (m *Metrics) IncRPCRequests(procedure, code string) {
	m.rpcRequestsTotal.WithLabelValues(procedure, code).Inc()
}

// IncScheduleActivations increments the scheduled start counter.
func (m *Metrics) IncScheduleActivations() {
	m.scheduleActivations.Inc()
}

// ObservePrepare records the time spent preparing play data.
func (m *Metrics) ObservePrepare(d time.Duration) {
	m.prepareDuration.Observe(d.Seconds())
}

// SetPlayingGroups sets the playing groups gauge.
func (m *Metrics) SetPlayingGroups(n int) {
	m.playingGroups.Set(float64(n))
}

// SetSubscribers sets the event subscribers gauge.
func (m *Metrics) SetSubscribers(n int) {
	m.subscribers.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
