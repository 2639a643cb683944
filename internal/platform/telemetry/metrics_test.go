package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct{}

func (codedErr) Error() string { return "slot taken" }
func (codedErr) Code() string  { return "slot_taken" }

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveBooking("ok", 0.01)
	m.ObserveBooking("slot_taken", 0.02)
	m.ObserveBooking("ok", 0.03)
	m.ObserveTransition("confirmed", "ok")
	m.ObserveAvailabilityWrite("add_slot", "slot_overlap")
	m.ObserveGateDecision(true, "free_consultation")
	m.ObserveSubscriptionEvent("trial", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("slot_taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("true", "free_consultation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.availabilityWrites.WithLabelValues("add_slot", "slot_overlap")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBooking("ok", 1)
	m.ObserveTransition("cancelled", "ok")
	m.ObserveAvailabilityWrite("replace", "ok")
	m.ObserveGateDecision(false, "feature_locked")
	m.ObserveSubscriptionEvent("upgrade", "ok")
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveBooking("ok", 0.5)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/metrics", nil), rec)

	require.NoError(t, m.Handler()(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ayurcare_appointments_bookings_total"))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("dial tcp")))
	assert.Equal(t, "slot_taken", Outcome(codedErr{}))
	assert.Equal(t, "slot_taken", Outcome(fmt.Errorf("book: %w", codedErr{})))
}

func TestStartSpan(t *testing.T) {
	ctx, finish := StartSpan(context.Background(), Tracer("test"), "op")
	require.NotNil(t, ctx)
	finish(errors.New("failed"))
}
