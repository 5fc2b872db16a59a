package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.MovementsRejected.WithLabelValues("overpaid").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.MovementsRejected.WithLabelValues("overpaid")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.MovementsRejected.WithLabelValues("overpaid")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.LedgerReplays.Inc()
	m.ObserveHTTP(http.MethodGet, "/api/v1/contracts", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "obras_ledger_replays_total 1")
	assert.Contains(t, body, `obras_http_requests_total{method="GET",route="/api/v1/contracts",status="200"} 1`)
}
