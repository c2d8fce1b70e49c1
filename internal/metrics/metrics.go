// Package metrics exposes scheduling counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	bookings      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	repairs       *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New registers the scheduling collectors with reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		bookings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduling_bookings_total",
				Help: "Booking attempts by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduling_transitions_total",
				Help: "Appointment status transitions by target status and outcome",
			},
			[]string{"to", "outcome"},
		),
		repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduling_reconcile_repairs_total",
				Help: "Availability index entries repaired by the reconciliation sweep",
			},
			[]string{"kind"},
		),
		httpDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
	}

	reg.MustRegister(m.bookings, m.transitions, m.repairs, m.httpDurations)
	return m
}

func (m *Metrics) RecordBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordTransition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) RecordRepair(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.repairs.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
