// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/lumina")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
}

/*
TestLoad_Defaults verifies that optional settings fall back to their defaults.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:8080/auth/oauth/callback", cfg.RedirectURL())
}

/*
TestLoad_ShortSecret rejects secrets too weak to sign continuation tickets.
*/
func TestLoad_ShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "short")

	_, err := config.Load()
	assert.Error(t, err)
}

/*
TestLoad_MissingRequired fails when a required setting is unset or set but empty.
*/
func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		unset bool
	}{
		{"database url empty", "DATABASE_URL", false},
		{"database url unset", "DATABASE_URL", true},
		{"redis url empty", "REDIS_URL", false},
		{"redis url unset", "REDIS_URL", true},
		{"session secret empty", "SESSION_SECRET", false},
		{"session secret unset", "SESSION_SECRET", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, "")
			if tt.unset {
				require.NoError(t, os.Unsetenv(tt.key))
			}

			_, err := config.Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
