package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

const (
	testSecret      = "handler-secret"
	testOperatorKey = "operator-key"
)

// Friday 16 October 2026.
var testNow = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	now := func() time.Time { return testNow }
	doctors := catalog.NewStaticCatalog(catalog.DefaultDoctors())
	index := availability.NewMemoryIndex()
	m := metrics.New(prometheus.NewRegistry())

	svc := appointment.NewService(appointment.ServiceConfig{
		Repo:    appointment.NewMemoryRepository(),
		Doctors: doctors,
		Index:   index,
		Locker:  availability.NewMemoryLocker(),
		Metrics: m,
		Logger:  zerolog.Nop(),
		Now:     now,
	})

	return NewRouter(RouterConfig{
		Service:     svc,
		Doctors:     doctors,
		Slots:       catalog.NewSlotCatalog(doctors, time.UTC, 31, now),
		Index:       index,
		Verifier:    auth.NewVerifier(testSecret),
		OperatorKey: testOperatorKey,
		Metrics:     m,
		Logger:      zerolog.Nop(),
		Env:         "test",
	})
}

func tokenFor(t *testing.T, patient uuid.UUID) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: patient.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

type call struct {
	method  string
	path    string
	body    any
	patient uuid.UUID
	headers map[string]string
}

func do(t *testing.T, h http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.patient != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, c.patient))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func booking(date, tod string) CreateAppointmentRequest {
	return CreateAppointmentRequest{DoctorID: "doc-001", Date: date, Time: tod, Reason: "checkup"}
}

func TestAppointments_BookConflictCancelRebook(t *testing.T) {
	h := newTestServer(t)
	p1, p2 := uuid.New(), uuid.New()

	rec := do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-19", "09:00 AM"), patient: p1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "scheduled", created.Status)
	assert.Equal(t, "Dr. Sarah Mitchell", created.DoctorName)
	assert.Equal(t, "2026-10-19", created.Date)
	assert.Equal(t, p1, created.PatientID)

	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-19", "09:00 AM"), patient: p2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_conflict", decode[ErrorResponse](t, rec).Error)

	rec = do(t, h, call{method: http.MethodDelete, path: "/api/appointments/" + created.ID.String(), patient: p2})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, call{method: http.MethodDelete, path: "/api/appointments/" + created.ID.String(), patient: p1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[AppointmentResponse](t, rec).Status)

	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments/" + created.ID.String() + "/cancel", patient: p1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Error)

	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-19", "09:00 AM"), patient: p2})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAppointments_ErrorStatuses(t *testing.T) {
	h := newTestServer(t)
	p := uuid.New()

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing reason", CreateAppointmentRequest{DoctorID: "doc-001", Date: "2026-10-19", Time: "09:00 AM"}, http.StatusBadRequest, "invalid_input"},
		{"bad date", booking("19/10/2026", "09:00 AM"), http.StatusBadRequest, "invalid_input"},
		{"outside template", booking("2026-10-19", "08:00 AM"), http.StatusUnprocessableEntity, "invalid_slot"},
		{"yesterday", booking("2026-10-15", "09:00 AM"), http.StatusUnprocessableEntity, "invalid_slot"},
		{"saturday off", booking("2026-10-17", "09:00 AM"), http.StatusUnprocessableEntity, "invalid_slot"},
		{"unknown doctor", CreateAppointmentRequest{DoctorID: "doc-999", Date: "2026-10-19", Time: "09:00 AM", Reason: "x"}, http.StatusNotFound, "doctor_not_found"},
		{"not json", "nope", http.StatusBadRequest, "invalid_request_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: tt.body, patient: p})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestAppointments_RequireToken(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/api/appointments"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, call{
		method:  http.MethodGet,
		path:    "/api/appointments",
		headers: map[string]string{"Authorization": "Bearer not-a-token"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppointments_ListGetAndDashboard(t *testing.T) {
	h := newTestServer(t)
	p, other := uuid.New(), uuid.New()

	for _, b := range []CreateAppointmentRequest{
		booking("2026-10-20", "09:00 AM"),
		booking("2026-10-19", "02:30 PM"),
		booking("2026-10-19", "10:00 AM"),
	} {
		rec := do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: b, patient: p})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-19", "11:00 AM"), patient: other})
	require.Equal(t, http.StatusCreated, rec.Code)
	theirs := decode[AppointmentResponse](t, rec)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/appointments", patient: p})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]AppointmentResponse](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, "10:00 AM", list[0].Time)
	assert.Equal(t, "02:30 PM", list[1].Time)
	assert.Equal(t, "2026-10-20", list[2].Date)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/appointments?status=cancelled", patient: p})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]AppointmentResponse](t, rec))

	rec = do(t, h, call{method: http.MethodGet, path: "/api/appointments?status=pending", patient: p})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/appointments/" + list[0].ID.String(), patient: p})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/appointments/" + theirs.ID.String(), patient: p})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/appointments/not-a-uuid", patient: p})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/dashboard/stats", patient: p})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[DashboardResponse](t, rec)
	assert.Equal(t, 3, stats.TotalAppointments)
	assert.Equal(t, 3, stats.UpcomingAppointments)
	require.Len(t, stats.RecentAppointments, 3)
	assert.Equal(t, "10:00 AM", stats.RecentAppointments[0].Time)
}

func TestAppointments_CompleteNeedsOperatorKey(t *testing.T) {
	h := newTestServer(t)
	p := uuid.New()
	operator := map[string]string{operatorKeyHeader: testOperatorKey}

	rec := do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-16", "10:00 AM"), patient: p})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[AppointmentResponse](t, rec).ID.String()

	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments/" + id + "/complete", patient: p})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments/" + id + "/complete", headers: operator})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decode[AppointmentResponse](t, rec).Status)

	rec = do(t, h, call{method: http.MethodDelete, path: "/api/appointments/" + id, patient: p})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// an appointment that has not happened yet cannot be completed
	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-19", "09:00 AM"), patient: p})
	require.Equal(t, http.StatusCreated, rec.Code)
	future := decode[AppointmentResponse](t, rec).ID.String()

	rec = do(t, h, call{method: http.MethodPost, path: "/api/appointments/" + future + "/complete", headers: operator})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDoctors(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/api/doctors"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]DoctorResponse](t, rec), 6)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors?specialty=cardiology"})
	require.Equal(t, http.StatusOK, rec.Code)
	cardio := decode[[]DoctorResponse](t, rec)
	require.Len(t, cardio, 1)
	assert.Equal(t, "doc-002", cardio[0].ID)
	assert.Equal(t, []string{"Monday", "Wednesday", "Friday"}, cardio[0].AvailableDays)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors/doc-003"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dermatology", decode[DoctorResponse](t, rec).Specialty)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors/doc-404"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDoctorSlots(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, call{method: http.MethodPost, path: "/api/appointments", body: booking("2026-10-19", "09:00 AM"), patient: uuid.New()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors/doc-001/slots?from=2026-10-16&to=2026-10-19"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SlotsResponse](t, rec)

	// Friday and Monday only; the clinic is closed at the weekend for doc-001.
	require.Len(t, resp.Slots, 2*len(catalog.DefaultSlotTemplate))
	held := 0
	for _, s := range resp.Slots {
		assert.NotEqual(t, "2026-10-17", s.Date)
		assert.NotEqual(t, "2026-10-18", s.Date)
		if !s.Available {
			held++
			assert.Equal(t, "2026-10-19", s.Date)
			assert.Equal(t, "09:00 AM", s.Time)
		}
	}
	assert.Equal(t, 1, held)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors/doc-001/slots?from=2026-10-19&to=2026-10-16"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors/doc-404/slots"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, call{method: http.MethodGet, path: "/health/ready"})
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, map[string]string{"appointments": "memory", "holds": "memory"}, ready.Dependencies)

	rec = do(t, h, call{method: http.MethodGet, path: "/api/doctors"})
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/doctors"`)
}
