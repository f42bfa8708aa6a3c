package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New()

	m.CacheFallbacks.WithLabelValues("ListExpenses").Inc()
	m.CacheFallbacks.WithLabelValues("ListExpenses").Inc()
	m.PendingOps.Set(3)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[family.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["spendwise_cache_fallbacks_total"])
	assert.Equal(t, 3.0, values["spendwise_pending_ops"])
}

func TestHandler(t *testing.T) {
	m := New()
	m.SyncRuns.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `spendwise_sync_runs_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
