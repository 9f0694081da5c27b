// Package metrics exposes questionnaire activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/resilience/internal/survey"
)

// Metrics implements survey.Observer and records export and HTTP activity.
type Metrics struct {
	registry *prometheus.Registry

	allocationWrites *prometheus.CounterVec
	modeResets       *prometheus.CounterVec
	exports          *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
}

// New creates a Metrics instance backed by its own registry, so several
// instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		allocationWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_allocation_writes_total",
				Help: "Allocation writes by mode and whether the value was accepted.",
			},
			[]string{"mode", "accepted"},
		),
		modeResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_mode_resets_total",
				Help: "Mode resets by mode.",
			},
			[]string{"mode"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_exports_total",
				Help: "Exports produced by kind (current_csv, current_json, both_csv).",
			},
			[]string{"kind"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "survey_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// AllocationWritten implements survey.Observer.
func (m *Metrics) AllocationWritten(mode survey.Mode, accepted bool) {
	m.allocationWrites.WithLabelValues(mode.Slug(), strconv.FormatBool(accepted)).Inc()
}

// ModeReset implements survey.Observer.
func (m *Metrics) ModeReset(mode survey.Mode) {
	m.modeResets.WithLabelValues(mode.Slug()).Inc()
}

// RecordExport counts one produced export.
func (m *Metrics) RecordExport(kind string) {
	m.exports.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware observes request latency labelled by chi route pattern, which
// keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requestLatency.
			WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
