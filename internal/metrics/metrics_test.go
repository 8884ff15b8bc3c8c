package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("create", "ok")
	m.ObserveOperation("create", "ok")
	m.ObserveOperation("create", "slot_already_taken")

	body := scrape(t, m)
	assert.Contains(t, body, `scheduling_operations_total{operation="create",outcome="ok"} 2`)
	assert.Contains(t, body, `scheduling_operations_total{operation="create",outcome="slot_already_taken"} 1`)
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodPost, "/appointments", http.StatusCreated, 12*time.Millisecond)

	assert.Contains(t, scrape(t, m), `http_requests_total{method="POST",route="/appointments",status="201"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("cancel", "ok")
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
