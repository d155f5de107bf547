// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workspace_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/authctx"
	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/page"
	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/internal/workspace"
)

func newHandlers(t *testing.T) map[string]pipeline.Handler {
	t.Helper()
	service, _ := newService(t)
	renderer, err := page.NewRenderer()
	require.NoError(t, err)
	return workspace.NewHandler(service, renderer).Handlers()
}

func authed(request *http.Request, accountID, workspaceID string, role authz.Role) *http.Request {
	auth := &authctx.AuthContext{
		Session:     &session.Session{ID: "s-1", AccountID: accountID},
		Account:     &identity.Account{ID: accountID, DisplayName: "Minh"},
		WorkspaceID: workspaceID,
		Role:        role,
		Params:      map[string]string{"workspaceId": workspaceID},
	}
	return request.WithContext(authctx.With(request.Context(), auth))
}

func TestListHandler(t *testing.T) {
	handlers := newHandlers(t)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest(http.MethodGet, "/api/workspaces?limit=1", nil), "acc-owner", "", "")
	require.NoError(t, handlers["workspaces.list"](recorder, request))

	var body struct {
		Data []map[string]any `json:"data"`
		Meta map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, float64(2), body.Meta["total"])
	assert.Equal(t, float64(2), body.Meta["totalPages"])

	recorder = httptest.NewRecorder()
	request = authed(httptest.NewRequest(http.MethodGet, "/api/workspaces", nil), "acc-nobody", "", "")
	require.NoError(t, handlers["workspaces.list"](recorder, request))
	assert.Contains(t, recorder.Body.String(), `"data":[]`)
}

func TestShowHandlerUsesResolvedRole(t *testing.T) {
	handlers := newHandlers(t)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest(http.MethodGet, "/api/workspaces/ws_school", nil), "acc-student", "ws_school", authz.RoleMember)
	require.NoError(t, handlers["workspaces.show"](recorder, request))
	assert.Contains(t, recorder.Body.String(), `"role":"member"`)
	assert.Contains(t, recorder.Body.String(), `"memberCount":2`)
}

func TestUpdateOrganizationHandler(t *testing.T) {
	handlers := newHandlers(t)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"website":"https://acme.example"}`)), "acc-owner", "ws_provider", authz.RoleAdmin)
	require.NoError(t, handlers["provider.organization.update"](recorder, request))
	assert.Contains(t, recorder.Body.String(), `"website":"https://acme.example"`)

	request = authed(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"website":`)), "acc-owner", "ws_provider", authz.RoleAdmin)
	err := handlers["provider.organization.update"](httptest.NewRecorder(), request)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestCreateHandler(t *testing.T) {
	handlers := newHandlers(t)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest(http.MethodPost, "/api/workspaces", strings.NewReader(`{"name":"Nguyễn Family","kind":"family"}`)), "acc-new", "", "")
	require.NoError(t, handlers["workspaces.create"](recorder, request))
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"slug":"nguyen-family"`)
}

func TestWorkspacePage(t *testing.T) {
	handlers := newHandlers(t)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest(http.MethodGet, "/workspaces/ws_school", nil), "acc-student", "ws_school", authz.RoleMember)
	require.NoError(t, handlers["page.workspace"](recorder, request))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Hanoi School")
	assert.Contains(t, recorder.Body.String(), "Signed in as Minh")

	request = authed(httptest.NewRequest(http.MethodGet, "/workspaces/ws_gone", nil), "acc-student", "ws_gone", authz.RoleMember)
	err := handlers["page.workspace"](httptest.NewRecorder(), request)
	assert.True(t, apperr.HasCode(err, apperr.CodeRouteNotFound))
}
