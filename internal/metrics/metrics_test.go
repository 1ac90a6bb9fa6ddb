package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaynet/gatewayd/internal/metrics"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.SetGeneration(1)
		m.SetSubscribers(2)
		m.SetConnected(true)
		m.ObserveSyncSession(1000)
	})
}

func TestMetrics_Handler_ExposesSyncSessions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	m.ObserveSyncSession(4000)
	m.ObserveSyncSession(4000)
	m.SetGeneration(3)

	count, err := testutil.GatherAndCount(registry, "gatewayd_courier_sync_sessions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	metrics.Handler(registry).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gatewayd_courier_sync_sessions_total{code="4000"} 2`)
	assert.Contains(t, w.Body.String(), "gatewayd_collection_generation 3")
}
