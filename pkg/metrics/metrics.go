// Package metrics exposes Prometheus metrics for live connections and the
// signup flow.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Connections
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter

	// Messages
	EventsTotal   *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	RenderBytes   prometheus.Histogram

	// HTTP
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec

	// Errors
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// Signup flow
	StepTransitions *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	FieldErrors     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a fresh registry that also
// carries the Go runtime and process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "connections_active",
			Help:      "Number of open live view connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "connections_total",
			Help:      "Live view connections accepted.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "events_total",
			Help:      "Client events handled by event and status.",
		}, []string{"event", "status"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "event_duration_seconds",
			Help:      "Time from receiving an event to pushing the render.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"event"}),
		RenderBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "render_bytes",
			Help:      "Size of rendered live regions pushed to clients.",
			Buckets:   prometheus.ExponentialBuckets(512, 2, 8),
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "route", "status"}),
		RequestsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distributions.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by class.",
		}, []string{"type"}),
		PanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Panics recovered by the HTTP middleware.",
		}),
		StepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signup",
			Name:      "step_transitions_total",
			Help:      "Step navigation attempts by direction and result.",
		}, []string{"direction", "result"}), // result=advanced|refused|back
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signup",
			Name:      "submissions_total",
			Help:      "Submissions by result.",
		}, []string{"result"}), // result=accepted|invalid|password_mismatch|handoff_failed
		FieldErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signup",
			Name:      "field_errors_total",
			Help:      "Validation failures by field and rule.",
		}, []string{"field", "rule"}),
		registry: reg,
	}

	reg.MustRegister(
		m.ConnectionsActive, m.ConnectionsTotal,
		m.EventsTotal, m.EventDuration, m.RenderBytes,
		m.RequestsTotal, m.RequestsDuration,
		m.ErrorsTotal, m.PanicsTotal,
		m.StepTransitions, m.Submissions, m.FieldErrors,
	)

	return m
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvent records one handled client event.
func (m *Metrics) ObserveEvent(event string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsTotal.WithLabelValues(event, status).Inc()
	m.EventDuration.WithLabelValues(event).Observe(d.Seconds())
}

// StepAdvanced, StepRefused, StepBack, Submission and FieldInvalid record
// signup flow outcomes.

func (m *Metrics) StepAdvanced() { m.StepTransitions.WithLabelValues("next", "advanced").Inc() }

func (m *Metrics) StepRefused() { m.StepTransitions.WithLabelValues("next", "refused").Inc() }

func (m *Metrics) StepBack() { m.StepTransitions.WithLabelValues("back", "back").Inc() }

func (m *Metrics) Submission(result string) { m.Submissions.WithLabelValues(result).Inc() }

func (m *Metrics) FieldInvalid(field, rule string) { m.FieldErrors.WithLabelValues(field, rule).Inc() }

// Middleware records request counts and latency per route label.
func (m *Metrics) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.status)
			m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			m.RequestsDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
