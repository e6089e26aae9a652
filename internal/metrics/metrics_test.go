package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRunIncrementsCounter(t *testing.T) {
	m := New()
	m.RecordRun("success", "full")
	m.RecordRun("success", "full")
	m.RecordRun("failure", "incremental")

	assert.InDelta(t, 2, counterValue(t, m.RunsTotal.WithLabelValues("success", "full")), 0)
	assert.InDelta(t, 1, counterValue(t, m.RunsTotal.WithLabelValues("failure", "incremental")), 0)
}

func TestRecordModuleIncrementsCounterAndObservesDuration(t *testing.T) {
	m := New()
	m.RecordModule("B_Ruff", "pass", 150*time.Millisecond)

	assert.InDelta(t, 1, counterValue(t, m.ModuleRunsTotal.WithLabelValues("B_Ruff", "pass")), 0)
}

func TestGaugesStartAtZero(t *testing.T) {
	m := New()
	assert.Equal(t, float64(0), gaugeValue(t, m.ActiveWatchers))
	assert.Equal(t, float64(0), gaugeValue(t, m.ActiveAnalyses))
	assert.Equal(t, float64(0), gaugeValue(t, m.WebsocketSubscribers))

	m.ActiveWatchers.Inc()
	assert.Equal(t, float64(1), gaugeValue(t, m.ActiveWatchers))
	m.ActiveWatchers.Dec()
	assert.Equal(t, float64(0), gaugeValue(t, m.ActiveWatchers))
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	m := New()
	m.RecordRun("success", "full")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rr, req)

	require.Equal(t, 200, rr.Code)
	assert.Contains(t, rr.Body.String(), "qualitygate_run_total")
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var d dto.Metric
	require.NoError(t, c.Write(&d))
	return d.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var d dto.Metric
	require.NoError(t, g.Write(&d))
	return d.Gauge.GetValue()
}
