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

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordOutcome(OutcomeOptimal)
	m.RecordOutcome(OutcomeOptimal)
	m.RecordOutcome(OutcomeInfeasible)
	m.RecordYTM(0.0297)
	m.ObserveModel(12, 11)
	m.ObserveSolve(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AllocationsTotal.WithLabelValues(OutcomeOptimal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllocationsTotal.WithLabelValues(OutcomeInfeasible)))
	assert.Equal(t, 0.0297, testutil.ToFloat64(m.PortfolioYTM))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ModelVariables))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SolveDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.RecordOutcome(OutcomeOptimal)
	m.RecordYTM(1)
	m.ObserveModel(1, 1)
	m.ObserveSolve(time.Second)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordOutcome(OutcomeOptimal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bondalloc_allocations_total{outcome="optimal"} 1`)
}
