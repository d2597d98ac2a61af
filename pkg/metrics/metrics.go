// Package metrics defines the Prometheus collectors used by the filter
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	FilesTotal          *prometheus.CounterVec
	FileDuration        prometheus.Histogram
	TasksInFlight       prometheus.Gauge
	LookupsTotal        *prometheus.CounterVec
	LookupLatency       prometheus.Histogram
	AcceptedTotal       *prometheus.CounterVec
	FallbacksTotal      *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg means
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamfilter_files_total",
				Help: "Submission files processed by final status (completed, failed kind).",
			},
			[]string{"status"},
		),
		FileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spamfilter_file_duration_seconds",
				Help:    "Wall time spent filtering one submission file.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		TasksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spamfilter_tasks_in_flight",
				Help: "Number of submission files currently being processed.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamfilter_lookups_total",
				Help: "Spam percentile lookups by result (ok, not_found, service, validation, timeout, cancelled).",
			},
			[]string{"result"},
		),
		LookupLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spamfilter_lookup_latency_seconds",
				Help:    "Spam percentile lookup latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		AcceptedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamfilter_accepted_documents_total",
				Help: "Documents written to a threshold output.",
			},
			[]string{"threshold"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamfilter_fallback_entries_total",
				Help: "Placeholder entries written for queries left empty by a threshold.",
			},
			[]string{"threshold"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spamfilter_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.FilesTotal,
		m.FileDuration,
		m.TasksInFlight,
		m.LookupsTotal,
		m.LookupLatency,
		m.AcceptedTotal,
		m.FallbacksTotal,
		m.CircuitBreakerState,
	)

	return m
}

func (m *Metrics) ObserveLookup(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(result).Inc()
	m.LookupLatency.Observe(d.Seconds())
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksInFlight.Inc()
}

func (m *Metrics) TaskFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksInFlight.Dec()
	m.FilesTotal.WithLabelValues(status).Inc()
	m.FileDuration.Observe(d.Seconds())
}

func (m *Metrics) AddAccepted(threshold, n int) {
	if m == nil || n == 0 {
		return
	}
	m.AcceptedTotal.WithLabelValues(strconv.Itoa(threshold)).Add(float64(n))
}

func (m *Metrics) AddFallback(threshold int) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(strconv.Itoa(threshold)).Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
