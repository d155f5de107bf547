// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/config"
	"github.com/taibuivan/lumina/internal/route"
)

func TestPrintRoutes(t *testing.T) {
	registry, err := route.Load()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printRoutes(&out, registry))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(registry.Routes())+1)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, out.String(), "/api/workspaces/:workspaceId/members")
	assert.Contains(t, out.String(), "5/1m0s")
}

func TestMergeHandlers_RejectsDuplicates(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) error { return nil }

	merged, err := mergeHandlers(
		map[string]pipeline.Handler{"health": noop},
		map[string]pipeline.Handler{"ready": noop},
	)
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	_, err = mergeHandlers(
		map[string]pipeline.Handler{"health": noop},
		map[string]pipeline.Handler{"health": noop},
	)
	assert.ErrorContains(t, err, "health")
}

func TestOAuthProviders_OnlyConfigured(t *testing.T) {
	cfg := &config.Config{
		PublicURL:         "https://lumina.example",
		OAuthRedirectPath: "/auth/oauth/callback",
		GitHubClientID:    "gh-id",
	}

	providers := oauthProviders(cfg)

	assert.Equal(t, []string{"github"}, providers.Names())
	_, err := providers.Lookup("google")
	assert.Error(t, err)
}
