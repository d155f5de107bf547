// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/authctx"
	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/identity/identityfake"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/page"
	"github.com/taibuivan/lumina/internal/platform/respond"
	"github.com/taibuivan/lumina/internal/platform/sec"
	"github.com/taibuivan/lumina/internal/ratelimit"
	"github.com/taibuivan/lumina/internal/route"
	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/internal/session/sessionfake"
)

type memberships map[string]authz.Role

func (m memberships) Role(_ context.Context, workspaceID, accountID string) (authz.Role, error) {
	role, ok := m[workspaceID+"/"+accountID]
	if !ok {
		return "", authz.ErrNoMembership
	}
	return role, nil
}

type harness struct {
	handler  http.Handler
	calls    atomic.Int64
	sessions *sessionfake.Repository
	accounts *identityfake.Repository
	members  memberships
	override map[string]pipeline.Handler
}

func newHarness(t *testing.T, overrides ...func(*harness)) *harness {
	t.Helper()

	registry, err := route.Load()
	require.NoError(t, err)
	pages, err := page.NewRenderer()
	require.NoError(t, err)

	h := &harness{
		sessions: sessionfake.New(),
		accounts: identityfake.New(),
		members:  memberships{},
		override: map[string]pipeline.Handler{},
	}
	for _, apply := range overrides {
		apply(h)
	}

	codec := cookie.NewCodec("", true)
	responder := pipeline.NewResponder(pages)
	m := metrics.New(prometheus.NewRegistry())

	wrapper := pipeline.NewWrapper(pipeline.Dependencies{
		Registry:   registry,
		Codec:      codec,
		Sessions:   session.NewService(h.sessions, time.Hour),
		Accounts:   h.accounts,
		Authorizer: authz.New(h.members),
		Limiter:    ratelimit.NewMemoryLimiter(),
		Pages:      pages,
		Responder:  responder,
		Metrics:    m,
	})

	handlers := make(map[string]pipeline.Handler)
	for _, config := range registry.Routes() {
		handlers[config.Name] = func(writer http.ResponseWriter, request *http.Request) error {
			h.calls.Add(1)
			auth := authctx.From(request.Context())
			respond.OK(writer, map[string]any{
				"route":     auth.Route.Name,
				"account":   auth.AccountID(),
				"workspace": auth.WorkspaceID,
			})
			return nil
		}
	}
	for name, handler := range h.override {
		handlers[name] = handler
	}

	dispatch, err := wrapper.Bind(handlers)
	require.NoError(t, err)

	h.handler = pipeline.NewGate(registry, codec, responder, m).Middleware(dispatch)
	return h
}

// login stores a live session for a seeded account and returns its id.
func (h *harness) login(t *testing.T, account identity.Account, expiresIn time.Duration) string {
	t.Helper()
	seeded := h.accounts.Seed(account)

	id, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	now := time.Now().UTC()
	h.sessions.Put(&session.Session{
		ID:        id,
		AccountID: seeded.ID,
		GroupID:   "group-1",
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(expiresIn),
	})
	return id
}

func (h *harness) do(method, target, sessionID string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: sessionID})
	}
	for _, apply := range mutate {
		apply(request)
	}
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range recorder.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestProtectedRouteWithoutCookie(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(http.MethodGet, "/api/workspaces/provider/ws_123/organization", "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, false, decode(t, recorder)["success"])
	assert.Zero(t, h.calls.Load())
	assert.Zero(t, h.sessions.Finds(), "the gate must not touch the session store")
}

func TestProtectedRouteWithMalformedCookie(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(http.MethodGet, "/api/auth/session", "not-a-session-id")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Zero(t, h.calls.Load())
	assert.Zero(t, h.sessions.Finds())
}

func TestExpiredSessionClearsCookie(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, identity.Account{ID: "acc-1", Kind: identity.KindProvider}, -time.Minute)

	recorder := h.do(http.MethodGet, "/api/workspaces/provider/ws_123/organization", id)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Zero(t, h.calls.Load())

	cleared := findCookie(recorder, constants.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestRevokedSessionIsAbsent(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, identity.Account{ID: "acc-1"}, time.Hour)
	_, err := session.NewService(h.sessions, time.Hour).RevokeGroup(context.Background(), "group-1")
	require.NoError(t, err)

	recorder := h.do(http.MethodGet, "/api/auth/session", id)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestUnknownRoutes(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(http.MethodGet, "/api/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.JSONEq(t, `{"success":false,"error":"Not Found"}`, recorder.Body.String())

	recorder = h.do(http.MethodGet, "/does-not-exist", "", func(r *http.Request) {
		r.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, recorder.Body.String(), "Page introuvable")
	assert.Zero(t, h.calls.Load())
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(http.MethodDelete, "/api/workspaces/provider/ws_1/organization", "")

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "GET, PATCH", recorder.Header().Get("Allow"))
}

func TestProtectedPageRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(http.MethodGet, "/workspaces/ws_1?tab=members", "")

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login?next=%2Fworkspaces%2Fws_1%3Ftab%3Dmembers", recorder.Header().Get("Location"))
}

func TestWorkspaceMemberAllowed(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.members["ws_123/acc-1"] = authz.RoleEditor })
	id := h.login(t, identity.Account{ID: "acc-1", Kind: identity.KindProvider, EmailVerified: true}, time.Hour)

	recorder := h.do(http.MethodPatch, "/api/workspaces/provider/ws_123/organization", id)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decode(t, recorder)["data"].(map[string]any)
	assert.Equal(t, "provider.organization.update", data["route"])
	assert.Equal(t, "acc-1", data["account"])
	assert.Equal(t, "ws_123", data["workspace"])
}

func TestWorkspaceDenials(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.members["ws_123/acc-1"] = authz.RoleViewer })
	id := h.login(t, identity.Account{ID: "acc-1", Kind: identity.KindProvider, EmailVerified: true}, time.Hour)

	recorder := h.do(http.MethodPatch, "/api/workspaces/provider/ws_123/organization", id)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = h.do(http.MethodGet, "/api/workspaces/ws_999", id)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = h.do(http.MethodGet, "/workspaces/ws_999", id)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Access denied")

	assert.Zero(t, h.calls.Load())
}

func TestSessionStoreDownFailsClosed(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, identity.Account{ID: "acc-1"}, time.Hour)
	h.sessions.SetDown(true)

	recorder := h.do(http.MethodGet, "/api/auth/session", id)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	errorBody := decode(t, recorder)["error"].(map[string]any)
	assert.Equal(t, "AUTH_UNAVAILABLE", errorBody["code"])
	assert.Zero(t, h.calls.Load())

	// Public routes degrade to anonymous instead.
	recorder = h.do(http.MethodGet, "/", id)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRateLimitPerIP(t *testing.T) {
	h := newHarness(t)
	fromIP := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Real-IP", ip) }
	}

	for i := 0; i < 5; i++ {
		recorder := h.do(http.MethodPost, "/api/auth/register", "", fromIP("10.0.0.1"))
		require.Equal(t, http.StatusOK, recorder.Code)
	}

	recorder := h.do(http.MethodPost, "/api/auth/register", "", fromIP("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("Retry-After"))

	recorder = h.do(http.MethodPost, "/api/auth/register", "", fromIP("10.0.0.2"))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSessionRenewalNearExpiry(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, identity.Account{ID: "acc-1"}, 10*time.Minute)

	recorder := h.do(http.MethodGet, "/api/auth/session", id)
	require.Equal(t, http.StatusOK, recorder.Code)

	renewed := findCookie(recorder, constants.SessionCookieName)
	require.NotNil(t, renewed)
	assert.Equal(t, id, renewed.Value)
	assert.Greater(t, renewed.MaxAge, int((50 * time.Minute).Seconds()))

	// A fresh session is left alone.
	fresh := h.login(t, identity.Account{ID: "acc-2"}, time.Hour)
	recorder = h.do(http.MethodGet, "/api/auth/session", fresh)
	assert.Nil(t, findCookie(recorder, constants.SessionCookieName))
}

func TestStaffRequiresTwoFactor(t *testing.T) {
	h := newHarness(t)
	without := h.login(t, identity.Account{ID: "staff-1", Kind: identity.KindStaff}, time.Hour)
	with := h.login(t, identity.Account{ID: "staff-2", Kind: identity.KindStaff, TwoFactorEnabled: true}, time.Hour)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/staff/overview", without).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/staff/overview", with).Code)
}

func TestHandlerErrorsAndPanics(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.override["health"] = func(http.ResponseWriter, *http.Request) error {
			panic("boom")
		}
		h.override["page.home"] = func(http.ResponseWriter, *http.Request) error {
			return assert.AnError
		}
	})

	recorder := h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "boom")

	recorder = h.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "Something went wrong"))
}

func TestBindRequiresEveryRoute(t *testing.T) {
	registry, err := route.Load()
	require.NoError(t, err)
	wrapper := pipeline.NewWrapper(pipeline.Dependencies{Registry: registry})

	_, err = wrapper.Bind(map[string]pipeline.Handler{})
	assert.ErrorContains(t, err, "no handler bound")

	handlers := map[string]pipeline.Handler{}
	for _, config := range registry.Routes() {
		handlers[config.Name] = func(http.ResponseWriter, *http.Request) error { return nil }
	}
	handlers["ghost"] = handlers["health"]
	_, err = wrapper.Bind(handlers)
	assert.ErrorContains(t, err, "unknown route")
}

func TestStageOrder(t *testing.T) {
	wrapper := pipeline.NewWrapper(pipeline.Dependencies{})

	var names []string
	for _, stage := range wrapper.Stages() {
		names = append(names, stage.Name)
	}
	assert.Equal(t, []string{
		pipeline.StageResolveRoute,
		pipeline.StageVerifySession,
		pipeline.StageRenewSession,
		pipeline.StageAuthorize,
		pipeline.StageRateLimit,
		pipeline.StageBuildContext,
	}, names)
}
