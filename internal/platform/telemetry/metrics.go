// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// used by the scheduling services.
package telemetry

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters and histograms for booking, availability and
// gating flows. A nil *Metrics is valid and records nothing.
type Metrics struct {
	bookingsTotal      *prometheus.CounterVec
	bookingLatency     prometheus.Histogram
	transitionsTotal   *prometheus.CounterVec
	availabilityWrites *prometheus.CounterVec
	gateDecisions      *prometheus.CounterVec
	subscriptionEvents *prometheus.CounterVec
	registry           prometheus.Gatherer
}

// NewMetrics registers all collectors on reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ayurcare",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ayurcare",
			Subsystem: "appointments",
			Name:      "booking_duration_seconds",
			Help:      "Time spent admitting a booking",
			Buckets:   prometheus.DefBuckets,
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ayurcare",
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions by target status and outcome",
		}, []string{"to", "outcome"}),
		availabilityWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ayurcare",
			Subsystem: "availability",
			Name:      "writes_total",
			Help:      "Availability mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ayurcare",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Chat gate decisions by reason",
		}, []string{"allowed", "reason"}),
		subscriptionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ayurcare",
			Subsystem: "subscription",
			Name:      "events_total",
			Help:      "Subscription operations by event and outcome",
		}, []string{"event", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.transitionsTotal,
		m.availabilityWrites, m.gateDecisions, m.subscriptionEvents)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	} else {
		m.registry = prometheus.DefaultGatherer
	}
	return m
}

func (m *Metrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *Metrics) ObserveTransition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) ObserveAvailabilityWrite(op, outcome string) {
	if m == nil {
		return
	}
	m.availabilityWrites.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveGateDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	m.gateDecisions.WithLabelValues(label, reason).Inc()
}

func (m *Metrics) ObserveSubscriptionEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.subscriptionEvents.WithLabelValues(event, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	var h http.Handler = promhttp.Handler()
	if m != nil && m.registry != nil {
		h = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	}
	return echo.WrapHandler(h)
}

// Outcome maps an error to a low-cardinality metric label using the error's
// code when it has one.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	type coded interface{ Code() string }
	for e := err; e != nil; {
		if c, ok := e.(coded); ok {
			return c.Code()
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return "error"
}
