// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct. Outside production a local '.env' file is loaded first with
'joho/godotenv', so real environment variables always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, OAuth providers) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the Lumina server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// PublicURL is the externally visible origin, used to build OAuth redirect URLs.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis): rate-limit buckets and verification tokens
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// SessionSecret signs short-lived OAuth continuation tickets.
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// Session cookie policy
	CookieDomain string        `env:"COOKIE_DOMAIN"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
	SessionTTL   time.Duration `env:"SESSION_TTL"   envDefault:"720h"`

	// OAuth providers. A provider with an empty client id is disabled.
	GoogleClientID       string `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"OAUTH_GOOGLE_CLIENT_SECRET"`
	GitHubClientID       string `env:"OAUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret   string `env:"OAUTH_GITHUB_CLIENT_SECRET"`
	FacebookClientID     string `env:"OAUTH_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"OAUTH_FACEBOOK_CLIENT_SECRET"`
	OAuthRedirectPath    string `env:"OAUTH_REDIRECT_PATH" envDefault:"/auth/oauth/callback"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is normal (containers, CI). Anything else is worth surfacing.
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to read .env file: %w", err)
		}
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if len(cfg.SessionSecret) < 32 {
		return nil, errors.New("config: SESSION_SECRET must be at least 32 bytes")
	}

	if cfg.SessionTTL <= 0 {
		return nil, errors.New("config: SESSION_TTL must be positive")
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedirectURL returns the absolute OAuth redirect URL registered with providers.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.PublicURL, "/") + c.OAuthRedirectPath
}
