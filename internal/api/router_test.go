package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/appointment/appointmenttest"
	"github.com/hackgods/clinic-shift-scheduling/internal/metrics"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

var today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var healthy = pingerFunc(func(context.Context) error { return nil })

type testServer struct {
	handler http.Handler
	store   *appointmenttest.Store
	doctor  appointment.Doctor
	patient appointment.Patient
	shift   appointment.Shift
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := appointmenttest.NewStore()
	m := metrics.New()
	svc := appointment.NewService(store, appointmenttest.NewLocker(), schedule.FixedClock(today), nil, m)

	ts := &testServer{store: store}
	ts.doctor = store.AddDoctor(appointment.Doctor{FirstName: "Ana", LastName: "Vera"})
	ts.patient = store.AddPatient(appointment.Patient{FirstName: "Luis", LastName: "Mora"})
	ts.shift = store.AddShift(appointment.Shift{DoctorID: ts.doctor.ID, Weekday: schedule.Monday, Turno: schedule.TurnoMorning})

	ts.handler = NewRouter(RouterConfig{
		Service:  svc,
		Postgres: healthy,
		Metrics:  m,
		Env:      "test",
		Version:  "v0.0.0",
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (ts *testServer) bookingRequest(date string, slot int) CreateAppointmentRequest {
	return CreateAppointmentRequest{
		PatientID:  ts.patient.ID.String(),
		DoctorID:   ts.doctor.ID.String(),
		Date:       date,
		SlotNumber: slot,
	}
}

func TestCreateAndReadAppointment(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.bookingRequest("2026-10-19", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "REGISTERED", created.Status)
	assert.Equal(t, "2026-10-15", created.RegisteredAt)

	rec = ts.do(t, http.MethodGet, "/appointments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[AppointmentResponse](t, rec)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "2026-10-19", got.Date)
	assert.Equal(t, 2, got.SlotNumber)
	require.NotNil(t, got.SlotTime)
	assert.Equal(t, SlotTimeResponse{Start: "08:30", End: "09:00"}, *got.SlotTime)
	assert.Equal(t, "2026-10-19 08:30 (Slot 2) - Dr. Ana Vera - Luis Mora", got.Summary)
}

func TestCreateAppointment_Rejections(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/appointments", ts.bookingRequest("2026-10-19", 1)).Code)

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"taken", ts.bookingRequest("2026-10-19", 1), http.StatusConflict, "slot_already_taken"},
		{"past", ts.bookingRequest("2026-10-14", 1), http.StatusUnprocessableEntity, "past_date"},
		{"range", ts.bookingRequest("2026-10-19", 17), http.StatusUnprocessableEntity, "slot_out_of_range"},
		{"no shift", ts.bookingRequest("2026-10-20", 1), http.StatusUnprocessableEntity, "no_active_shift_for_day"},
		{"bad json", `{"patient_id":`, http.StatusBadRequest, "invalid_request_body"},
		{"bad date", ts.bookingRequest("19/10/2026", 1), http.StatusBadRequest, "invalid_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/appointments", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Error)
		})
	}

	unknown := ts.bookingRequest("2026-10-19", 3)
	unknown.PatientID = uuid.NewString()
	rec := ts.do(t, http.MethodPost, "/appointments", unknown)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "patient_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestAppointmentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	created := decode[AppointmentResponse](t, ts.do(t, http.MethodPost, "/appointments", ts.bookingRequest("2026-10-19", 4)))
	base := "/appointments/" + created.ID.String()

	reason := "follow-up"
	rec := ts.do(t, http.MethodPatch, base, UpdateAppointmentRequest{Reason: &reason})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "follow-up", decode[AppointmentResponse](t, rec).Reason)

	rec = ts.do(t, http.MethodPost, base+"/attend", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ATTENDED", decode[AppointmentResponse](t, rec).Status)

	rec = ts.do(t, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state_transition", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/appointments/"+uuid.NewString()+"/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointment_FreesSlot(t *testing.T) {
	ts := newTestServer(t)
	created := decode[AppointmentResponse](t, ts.do(t, http.MethodPost, "/appointments", ts.bookingRequest("2026-10-19", 5)))

	rec := ts.do(t, http.MethodPost, "/appointments/"+created.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "2026-10-15", *cancelled.CancelledAt)

	rec = ts.do(t, http.MethodPost, "/appointments", ts.bookingRequest("2026-10-19", 5))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestDoctorSlots(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/appointments", ts.bookingRequest("2026-10-19", 16)).Code)
	base := "/doctors/" + ts.doctor.ID.String() + "/slots"

	rec := ts.do(t, http.MethodGet, base+"?date=2026-10-19", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decode[[]DaySlotResponse](t, rec)
	require.Len(t, grid, 16)
	assert.Equal(t, DaySlotResponse{Slot: 1, Start: "08:00", End: "08:30"}, grid[0])
	assert.Equal(t, DaySlotResponse{Slot: 16, Start: "15:30", End: "16:00", Taken: true}, grid[15])

	rec = ts.do(t, http.MethodGet, base+"/2?date=2026-10-19", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decode[ResolvedSlotResponse](t, rec)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, &SlotTimeResponse{Start: "08:30", End: "09:00"}, resolved.SlotTime)

	rec = ts.do(t, http.MethodGet, base+"/2?date=2026-10-20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[ResolvedSlotResponse](t, rec).Resolved)

	rec = ts.do(t, http.MethodGet, base+"?date=2026-10-20", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"?date=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShifts(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/shifts", CreateShiftRequest{DoctorID: ts.doctor.ID.String(), Weekday: "MONDAY", Turno: "NIGHT"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_shift_for_day", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/shifts", CreateShiftRequest{DoctorID: ts.doctor.ID.String(), Weekday: "SUNDAY", Turno: "NIGHT"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sunday := decode[ShiftResponse](t, rec)
	assert.Equal(t, "20:00 - 02:00", sunday.Hours)

	rec = ts.do(t, http.MethodGet, "/shifts/"+sunday.ID.String()+"/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decode[[]DaySlotResponse](t, rec)
	require.Len(t, grid, 16)
	assert.Equal(t, "00:00", grid[8].Start)
	assert.Equal(t, "04:00", grid[15].End)

	rec = ts.do(t, http.MethodPatch, "/shifts/"+sunday.ID.String(), UpdateShiftRequest{Turno: "AFTERNOON"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AFTERNOON", decode[ShiftResponse](t, rec).Turno)

	rec = ts.do(t, http.MethodPost, "/shifts/"+sunday.ID.String()+"/deactivate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INACTIVE", decode[ShiftResponse](t, rec).Status)
}

func TestRegistry(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/specialties", CreateSpecialtyRequest{Name: "Dermatology"})
	require.Equal(t, http.StatusCreated, rec.Code)
	specialty := decode[SpecialtyResponse](t, rec)

	doctor := RegisterDoctorRequest{
		Identifier:  "1700000001",
		FirstName:   "Inés",
		LastName:    "Paredes",
		Phone:       "0990000001",
		Email:       "ines@clinic.test",
		SpecialtyID: specialty.ID.String(),
	}
	rec = ts.do(t, http.MethodPost, "/doctors", doctor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Dr. Inés Paredes", decode[DoctorResponse](t, rec).Name)

	rec = ts.do(t, http.MethodPost, "/doctors", doctor)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "identifier_already_exists", decode[ErrorResponse](t, rec).Error)

	patient := RegisterPatientRequest{
		Identifier: "0900000001",
		FirstName:  "Rosa",
		LastName:   "Luna",
		BirthDate:  "1985-02-11",
		Phone:      "0980000001",
		Email:      "rosa@clinic.test",
	}
	rec = ts.do(t, http.MethodPost, "/patients", patient)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2026-10-15", decode[PatientResponse](t, rec).RegisteredAt)

	patient.Identifier = "09000"
	rec = ts.do(t, http.MethodPost, "/patients", patient)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_field_format", errResp.Error)
	assert.Equal(t, "identifier must be exactly 10 digits", errResp.Details)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Fail("GetAppointmentByID", errors.New("pq: password authentication failed"))

	rec := ts.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "internal_error", resp.Error)
	assert.NotContains(t, resp.Details, "password")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[LivenessResponse](t, rec).Status)

	rec = ts.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "disabled"}, ready.Dependencies)
}

func TestReadiness_Dependencies(t *testing.T) {
	down := pingerFunc(func(context.Context) error { return errors.New("refused") })

	cases := []struct {
		name     string
		postgres Pinger
		redis    Pinger
		code     int
		status   string
	}{
		{"all up", healthy, healthy, http.StatusOK, "ok"},
		{"redis down", healthy, down, http.StatusOK, "degraded"},
		{"postgres down", down, healthy, http.StatusServiceUnavailable, "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.postgres, tc.redis, "test", "")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.status, decode[ReadinessResponse](t, rec).Status)
		})
	}
}

func TestMiddleware_RequestIDAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = ts.do(t, http.MethodGet, "/health/live", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	ts.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)

	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/health/live",status="200"} 2`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/appointments/{id}",status="404"} 1`)
}
