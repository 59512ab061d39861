// Package metrics exposes Prometheus collectors for the HTTP surface, the
// audit trail and the backup job.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// Metrics holds the registered collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg prometheus.Gatherer

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	auditAppendFailures *prometheus.CounterVec
	loginFailures       prometheus.Counter

	backupRuns        *prometheus.CounterVec
	backupDuration    prometheus.Histogram
	backupLastSuccess prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		auditAppendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_append_failures_total",
				Help: "Audit entries that could not be stored after a successful change.",
			},
			[]string{"action"},
		),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_login_failures_total",
			Help: "Rejected login attempts.",
		}),
		backupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backup_runs_total",
				Help: "Backup runs by outcome.",
			},
			[]string{"result"},
		),
		backupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Time taken to write a backup archive.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		backupLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backup_last_success_timestamp_seconds",
			Help: "Unix time of the last successful backup.",
		}),
	}
	reg.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.auditAppendFailures, m.loginFailures,
		m.backupRuns, m.backupDuration, m.backupLastSuccess,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// AuditAppendFailed counts an audit entry lost for action.
func (m *Metrics) AuditAppendFailed(action models.Action) {
	if m == nil {
		return
	}
	m.auditAppendFailures.WithLabelValues(string(action)).Inc()
}

// LoginFailed counts a rejected login.
func (m *Metrics) LoginFailed() {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
}

// BackupFinished records a backup run.
func (m *Metrics) BackupFinished(success bool, took time.Duration) {
	if m == nil {
		return
	}
	m.backupDuration.Observe(took.Seconds())
	if !success {
		m.backupRuns.WithLabelValues("failure").Inc()
		return
	}
	m.backupRuns.WithLabelValues("success").Inc()
	m.backupLastSuccess.SetToCurrentTime()
}

// Instrument measures request count, latency and in-flight requests. The
// path label is the chi route pattern so ids do not inflate cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
