package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordBooking("booked")
	m.RecordBooking("booked")
	m.RecordBooking("slot_conflict")
	m.RecordTransition("cancelled", "ok")
	m.RecordRepair("ghost_released", 3)
	m.RecordRepair("rehold", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues("slot_conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("cancelled", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.repairs.WithLabelValues("ghost_released")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordBooking("booked")
	m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordHTTPRequest("POST", "/api/appointments", 201, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_request_duration_seconds_count{method="POST",route="/api/appointments",status_code="201"} 1`)
}
