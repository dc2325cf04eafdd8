// Package metrics defines the Prometheus collectors used by civicgrid and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kuanb/civicgrid/correlate"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	CorrelationRuns      *prometheus.CounterVec
	CorrelationDuration  *prometheus.HistogramVec
	PairsEvaluated       prometheus.Counter
	PairFailures         prometheus.Counter
	FeaturesSkipped      *prometheus.CounterVec
	CorrelationLinks     prometheus.Gauge
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		CorrelationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicgrid_correlation_runs_total",
				Help: "Total correlation runs by strategy and status.",
			},
			[]string{"strategy", "status"},
		),
		CorrelationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "civicgrid_correlation_duration_seconds",
				Help:    "Correlation run latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"strategy"},
		),
		PairsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "civicgrid_pairs_evaluated_total",
				Help: "Total point-in-polygon tests performed.",
			},
		),
		PairFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "civicgrid_pair_failures_total",
				Help: "Total point-in-polygon tests that could not be evaluated.",
			},
		),
		FeaturesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicgrid_features_skipped_total",
				Help: "Features excluded from containment testing by kind and reason.",
			},
			[]string{"kind", "reason"},
		),
		CorrelationLinks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "civicgrid_correlation_links",
				Help: "Containment pairs in the most recently loaded catalog.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civicgrid_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "civicgrid_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "civicgrid_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		gatherer: g,
	}

	reg.MustRegister(
		m.CorrelationRuns,
		m.CorrelationDuration,
		m.PairsEvaluated,
		m.PairFailures,
		m.FeaturesSkipped,
		m.CorrelationLinks,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)

	return m
}

// ObserveCorrelation records a finished run. A nil result counts as an error.
func (m *Metrics) ObserveCorrelation(strategy correlate.Strategy, res *correlate.Result) {
	if res == nil {
		m.CorrelationRuns.WithLabelValues(strategy.String(), "error").Inc()
		return
	}
	d := res.Diagnostics()
	m.CorrelationRuns.WithLabelValues(strategy.String(), "ok").Inc()
	m.CorrelationDuration.WithLabelValues(strategy.String()).Observe(d.Duration.Seconds())
	m.PairsEvaluated.Add(float64(d.PairsEvaluated))
	m.PairFailures.Add(float64(len(d.Failures)))
	m.FeaturesSkipped.WithLabelValues("point", "no_identifier").Add(float64(d.PointsSkipped))
	m.FeaturesSkipped.WithLabelValues("point", "no_geometry").Add(float64(d.PointsWithoutGeometry))
	m.FeaturesSkipped.WithLabelValues("polygon", "no_identifier").Add(float64(d.PolygonsSkipped))
	m.FeaturesSkipped.WithLabelValues("polygon", "no_geometry").Add(float64(d.PolygonsWithoutGeometry))
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
