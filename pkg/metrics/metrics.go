// Package metrics exposes Prometheus collectors for HTTP traffic and
// clearance decisions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision outcomes recorded by RecordDecision.
const (
	OutcomeAllowed       = "allowed"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeInvalidStatus = "invalid_status"
)

// Metrics holds the engine's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	decisions           *prometheus.CounterVec
	scriptsAnalyzed     *prometheus.CounterVec
	risksDetected       prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clearance_decisions_total",
			Help: "Authorization and lifecycle decisions by operation and outcome.",
		}, []string{"operation", "role", "outcome"}),
		scriptsAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clearance_scripts_analyzed_total",
			Help: "Script uploads by final analysis status.",
		}, []string{"status"}),
		risksDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clearance_risks_detected_total",
			Help: "Risk flags produced by script analysis.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.decisions,
		m.scriptsAnalyzed,
		m.risksDetected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts one capability or transition decision.
func (m *Metrics) RecordDecision(operation, role, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, role, outcome).Inc()
}

// RecordScriptAnalyzed counts a finished upload and the flags it produced.
func (m *Metrics) RecordScriptAnalyzed(status string, risks int) {
	if m == nil {
		return
	}
	m.scriptsAnalyzed.WithLabelValues(status).Inc()
	m.risksDetected.Add(float64(risks))
}

// Instrument records in-flight requests, request counts and latencies.
// Routes are labelled by their ServeMux pattern to keep cardinality bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(sw.code)

		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
