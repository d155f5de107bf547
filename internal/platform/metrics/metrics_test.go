// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/lumina/internal/platform/metrics"
)

/*
TestMetrics_Exposed checks that recorded values appear on the scrape endpoint.
*/
func TestMetrics_Exposed(t *testing.T) {
	registry := prometheus.NewRegistry()
	instruments := metrics.New(registry)

	instruments.ObserveRequest("workspaces.list", http.MethodGet, http.StatusOK, 12*time.Millisecond)
	instruments.EdgeRejected("not_found")
	instruments.SessionIssued()

	count, err := testutil.GatherAndCount(registry, "lumina_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	recorder := httptest.NewRecorder()
	metrics.Handler(registry).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `lumina_edge_rejections_total{reason="not_found"} 1`)
}

/*
TestMetrics_NilSafe allows components built without metrics.
*/
func TestMetrics_NilSafe(t *testing.T) {
	var instruments *metrics.Metrics
	assert.NotPanics(t, func() {
		instruments.ObserveRequest("x", http.MethodGet, 200, time.Millisecond)
		instruments.StoreFailed("session")
	})
}
