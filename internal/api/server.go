// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires the global middleware chain, the edge gate and the route
dispatcher into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - Routing is not done by chi: every path reaches the edge gate, which matches
    it against the route registry, and the dispatcher then runs the handler
    pipeline for the matched route.
  - Only this package and cmd/lumina are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/config"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once by the serve command with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// Edge groups the request filters that run before the dispatcher.
type Edge struct {
	// Throttle sheds per-IP floods before any routing work.
	Throttle *middleware.Throttle

	// Gate matches the route and rejects unknown paths and methods.
	Gate *pipeline.Gate
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain in front of
// dispatcher, the handler returned by [pipeline.Wrapper.Bind].
func NewServer(cfg *config.Config, log *slog.Logger, edge Edge, dispatcher http.Handler) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg, cfg.ExtraOrigins))
	r.Use(edge.Throttle.Middleware)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(edge.Gate.Middleware)

	// # Dispatch
	// The gate and the wrapper match on request.URL.Path against the registry,
	// which already ignores trailing slashes, so chi only needs a catch-all.
	r.Handle("/", dispatcher)
	r.Handle("/*", dispatcher)

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
