// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings the Redis client.
	CheckCache func(ctx context.Context) error
}

// Health serves the infrastructure routes: liveness, readiness and the metrics scrape.
type Health struct {
	dependencies HealthDependencies
	scrape       http.Handler
}

// NewHealth creates a [Health] exposing gatherer on the metrics route.
func NewHealth(deps HealthDependencies, gatherer prometheus.Gatherer) *Health {
	return &Health{dependencies: deps, scrape: metrics.Handler(gatherer)}
}

// Handlers returns the infrastructure handlers keyed by route name.
func (health *Health) Handlers() map[string]pipeline.Handler {
	return map[string]pipeline.Handler{
		"health":  health.liveness,
		"ready":   health.readiness,
		"metrics": pipeline.FromHTTP(health.scrape),
	}
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// liveness handles GET /health.
func (health *Health) liveness(writer http.ResponseWriter, request *http.Request) error {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
	return nil
}

// readiness handles GET /ready. Any failing dependency turns the response into a 503.
func (health *Health) readiness(writer http.ResponseWriter, request *http.Request) error {
	results := make([]checkResult, 0, 2)
	isSystemReady := true

	run := func(name string, check func(ctx context.Context) error) {
		if check == nil {
			return
		}

		ctx, cancel := context.WithTimeout(request.Context(), constants.StoreTimeout)
		defer cancel()

		result := checkResult{Name: name, IsOK: true}
		if err := check(ctx); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			ctxutil.GetLogger(request.Context()).Error("readiness_check_failed",
				slog.String("dependency", name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	run("postgres", health.dependencies.CheckDatabase)
	run("redis", health.dependencies.CheckCache)

	status, httpStatus := "ready", http.StatusOK
	if !isSystemReady {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{
		Success: isSystemReady,
		Data: map[string]any{
			constants.FieldStatus: status,
			constants.FieldChecks: results,
		},
	})
	return nil
}
