// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/api"
	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity/identityfake"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/config"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/middleware"
	"github.com/taibuivan/lumina/internal/platform/page"
	"github.com/taibuivan/lumina/internal/platform/respond"
	"github.com/taibuivan/lumina/internal/ratelimit"
	"github.com/taibuivan/lumina/internal/route"
	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/internal/session/sessionfake"
)

type noMembers struct{}

func (noMembers) Role(context.Context, string, string) (authz.Role, error) {
	return "", authz.ErrNoMembership
}

func newTestServer(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()

	registry, err := route.Load()
	require.NoError(t, err)
	pages, err := page.NewRenderer()
	require.NoError(t, err)

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	codec := cookie.NewCodec("", true)
	responder := pipeline.NewResponder(pages)

	wrapper := pipeline.NewWrapper(pipeline.Dependencies{
		Registry:   registry,
		Codec:      codec,
		Sessions:   session.NewService(sessionfake.New(), time.Hour),
		Accounts:   identityfake.New(),
		Authorizer: authz.New(noMembers{}),
		Limiter:    ratelimit.NewMemoryLimiter(),
		Pages:      pages,
		Responder:  responder,
		Metrics:    m,
	})

	handlers := make(map[string]pipeline.Handler)
	for _, config := range registry.Routes() {
		handlers[config.Name] = func(writer http.ResponseWriter, _ *http.Request) error {
			respond.NoContent(writer)
			return nil
		}
	}
	for name, handler := range api.NewHealth(deps, promRegistry).Handlers() {
		handlers[name] = handler
	}

	dispatcher, err := wrapper.Bind(handlers)
	require.NoError(t, err)

	cfg := &config.Config{ServerPort: "0", Environment: "test"}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	edge := api.Edge{
		Throttle: middleware.NewThrottle(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst),
		Gate:     pipeline.NewGate(registry, codec, responder, m),
	}
	return api.NewServer(cfg, logger, edge, dispatcher).Handler()
}

func serve(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestServer_Liveness(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	recorder := serve(handler, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
	data := decode(t, recorder)["data"].(map[string]any)
	assert.Equal(t, "ok", data[constants.FieldStatus])
	assert.Equal(t, constants.AppName, data[constants.FieldApp])
}

func TestServer_ReadinessAllHealthy(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return nil },
	})

	recorder := serve(handler, http.MethodGet, "/ready")

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ready", body["data"].(map[string]any)[constants.FieldStatus])
}

func TestServer_ReadinessDegraded(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return errors.New("connection refused") },
	})

	recorder := serve(handler, http.MethodGet, "/ready")

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, false, body["success"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "degraded", data[constants.FieldStatus])
	checks := data[constants.FieldChecks].([]any)
	require.Len(t, checks, 2)
	assert.Equal(t, true, checks[0].(map[string]any)["ok"])
	assert.Equal(t, "connection refused", checks[1].(map[string]any)["error"])
}

func TestServer_MetricsScrape(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	serve(handler, http.MethodGet, "/health")
	recorder := serve(handler, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "lumina_requests_total")
}

func TestServer_UnknownAPIPath(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	recorder := serve(handler, http.MethodGet, "/api/does-not-exist")

	require.Equal(t, http.StatusNotFound, recorder.Code)
	body := decode(t, recorder)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Not Found", body["error"])
}

func TestServer_RegisteredRouteReachesHandler(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	recorder := serve(handler, http.MethodPost, "/api/auth/login")

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestServer_TrailingSlashMatchesRoute(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	assert.Equal(t, http.StatusNoContent, serve(handler, http.MethodPost, "/api/auth/login/").Code)
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/health/").Code)
}
