package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for OptimizationRuns.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Metrics holds the dashboard collectors on their own registry so that tests
// (and multiple servers in one process) don't fight over the default one.
type Metrics struct {
	Registry *prometheus.Registry

	// OptimizationRuns counts global optimization requests by outcome.
	OptimizationRuns *prometheus.CounterVec

	// StaleResults counts optimization responses that arrived after a newer
	// request for the same site and were dropped.
	StaleResults prometheus.Counter

	// UpstreamDuration observes farm API latency per endpoint and status.
	UpstreamDuration *prometheus.HistogramVec

	Exports prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		OptimizationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmdash_optimization_runs_total",
			Help: "Total number of global optimization runs by outcome",
		}, []string{"outcome"}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmdash_stale_optimization_results_total",
			Help: "Optimization results discarded because a newer request superseded them",
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmdash_upstream_request_duration_seconds",
			Help:    "Latency of farm API requests",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint", "status"}),
		Exports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmdash_exports_total",
			Help: "Total number of CSV exports served",
		}),
	}

	m.Registry.MustRegister(
		m.OptimizationRuns,
		m.StaleResults,
		m.UpstreamDuration,
		m.Exports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveUpstream records one farm API round trip. A nil receiver is a no-op.
func (m *Metrics) ObserveUpstream(endpoint, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(endpoint, status).Observe(elapsed.Seconds())
}

func (m *Metrics) RunOutcome(outcome string) {
	if m == nil {
		return
	}
	m.OptimizationRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeStale {
		m.StaleResults.Inc()
	}
}

func (m *Metrics) ExportServed() {
	if m == nil {
		return
	}
	m.Exports.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
