// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/taibuivan/lumina/internal/api"
	"github.com/taibuivan/lumina/internal/auth"
	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/oauth"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/config"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/middleware"
	"github.com/taibuivan/lumina/internal/platform/migration"
	"github.com/taibuivan/lumina/internal/platform/page"
	pgstore "github.com/taibuivan/lumina/internal/platform/postgres"
	redisstore "github.com/taibuivan/lumina/internal/platform/redis"
	"github.com/taibuivan/lumina/internal/platform/sec"
	"github.com/taibuivan/lumina/internal/ratelimit"
	"github.com/taibuivan/lumina/internal/route"
	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/internal/staff"
	"github.com/taibuivan/lumina/internal/workspace"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

/*
serve runs the server until SIGINT or SIGTERM.

# Startup Sequence

 1. Load configuration and build the logger.
 2. Connect to PostgreSQL and Redis (retried with backoff).
 3. Run database migrations (idempotent).
 4. Build the route registry, stores and services.
 5. Bind every route to its handler.
 6. Start background loops and the HTTP server, then drain on shutdown.
*/
func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// # 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.Debug)
	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// # 2. Stores
	startupCtx, startupCancel := context.WithTimeout(ctx, constants.StartupRetryWindow)
	defer startupCancel()

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect_postgres_failed: %w", err)
	}
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect_redis_failed: %w", err)
	}
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// # 3. Migrations
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run_migrations_failed: %w", err)
	}

	// # 4. Services
	registry, err := route.Load()
	if err != nil {
		return err
	}

	renderer, err := page.NewRenderer()
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	instruments := metrics.New(promRegistry)

	codec := cookie.NewCodec(cfg.CookieDomain, cfg.CookieSecure)
	sessions := session.NewService(session.NewPostgresRepository(pool), cfg.SessionTTL)

	identityRepository := identity.NewPostgresRepository(pool)
	identities := identity.NewService(identityRepository, identity.NewRedisTokenStore(rdb))

	workspaces := workspace.NewService(workspace.NewPostgresRepository(pool), log)
	staffService := staff.NewService(staff.NewPostgresRepository(pool))

	providers := oauthProviders(cfg)
	tickets := sec.NewTicketSigner(cfg.SessionSecret, constants.OAuthTicketIssuer, constants.OAuthTicketTTL)
	federator := oauth.NewFederator(providers, identityRepository, sessions, tickets, instruments)

	responder := pipeline.NewResponder(renderer)
	wrapper := pipeline.NewWrapper(pipeline.Dependencies{
		Registry:   registry,
		Codec:      codec,
		Sessions:   sessions,
		Accounts:   identityRepository,
		Authorizer: authz.New(workspaces),
		Limiter:    ratelimit.NewRedisLimiter(rdb),
		Pages:      renderer,
		Responder:  responder,
		Metrics:    instruments,
	})

	// # 5. Handlers
	health := api.NewHealth(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, promRegistry)

	handlers, err := mergeHandlers(
		health.Handlers(),
		auth.NewHandler(identities, sessions, federator, codec, instruments, cfg.IsDevelopment()).Handlers(),
		auth.NewPages(renderer, providers).Handlers(),
		workspace.NewHandler(workspaces, renderer).Handlers(),
		staff.NewHandler(staffService, renderer).Handlers(),
	)
	if err != nil {
		return err
	}

	dispatcher, err := wrapper.Bind(handlers)
	if err != nil {
		return err
	}

	// # 6. Run
	throttle := middleware.NewThrottle(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)
	go throttle.Run(ctx)
	go sessions.RunPurger(ctx, constants.SessionPurgeInterval, log)

	server := api.NewServer(cfg, log, api.Edge{
		Throttle: throttle,
		Gate:     pipeline.NewGate(registry, codec, responder, instruments),
	}, dispatcher)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_failed", slog.Any("error", err))
		return err
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown_failed: %w", err)
	}

	log.Info("server_stopped_cleanly")
	return nil
}

// oauthProviders enables every provider whose client id is configured.
func oauthProviders(cfg *config.Config) *oauth.Registry {
	client := &http.Client{Timeout: constants.ProviderTimeout}
	options := func(id, secret string) oauth.Options {
		return oauth.Options{
			ClientID:     id,
			ClientSecret: secret,
			RedirectURL:  cfg.RedirectURL(),
			HTTPClient:   client,
		}
	}

	var providers []oauth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, oauth.NewGoogle(options(cfg.GoogleClientID, cfg.GoogleClientSecret)))
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, oauth.NewGitHub(options(cfg.GitHubClientID, cfg.GitHubClientSecret)))
	}
	if cfg.FacebookClientID != "" {
		providers = append(providers, oauth.NewFacebook(options(cfg.FacebookClientID, cfg.FacebookClientSecret)))
	}
	return oauth.NewRegistry(providers...)
}

// mergeHandlers joins the per-module handler maps. A route bound twice is a wiring bug.
func mergeHandlers(sets ...map[string]pipeline.Handler) (map[string]pipeline.Handler, error) {
	merged := make(map[string]pipeline.Handler)
	for _, set := range sets {
		for name, handler := range set {
			if _, dup := merged[name]; dup {
				return nil, fmt.Errorf("route %q bound twice", name)
			}
			merged[name] = handler
		}
	}
	return merged, nil
}
