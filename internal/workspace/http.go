// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workspace

import (
	"net/http"

	"github.com/taibuivan/lumina/internal/module"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/page"
	requestutil "github.com/taibuivan/lumina/internal/platform/request"
	"github.com/taibuivan/lumina/internal/platform/respond"
	"github.com/taibuivan/lumina/pkg/pagination"
)

// paramWorkspaceID is the path parameter of workspace-scoped routes.
const paramWorkspaceID = "workspaceId"

// # HTTP Handler

// Handler exposes the workspace module over HTTP.
type Handler struct {
	workspaces module.Workspaces
	renderer   *page.Renderer
}

// NewHandler constructs a new workspace [Handler].
func NewHandler(workspaces module.Workspaces, renderer *page.Renderer) *Handler {
	return &Handler{workspaces: workspaces, renderer: renderer}
}

// Handlers returns the business handlers keyed by route name.
func (handler *Handler) Handlers() map[string]pipeline.Handler {
	return map[string]pipeline.Handler{
		"workspaces.list":              handler.list,
		"workspaces.create":            handler.create,
		"workspaces.billing":           handler.billing,
		"workspaces.show":              handler.show,
		"workspaces.members":           handler.members,
		"provider.organization.show":   handler.organization,
		"provider.organization.update": handler.updateOrganization,
		"page.workspace":               handler.workspacePage,
	}
}

/*
GET /api/workspaces

Description: Lists the caller's workspaces with their role in each.

Request:
  - Query: page, limit

Response:
  - 200: []module.Workspace with pagination meta
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	params := pagination.FromRequest(request)
	workspaces, total, err := handler.workspaces.ListForAccount(request.Context(), auth.AccountID(), params)
	if err != nil {
		return err
	}
	if workspaces == nil {
		workspaces = []*module.Workspace{}
	}

	respond.Paginated(writer, workspaces, pagination.NewMeta(params.Page, params.Limit, total))
	return nil
}

/*
POST /api/workspaces

Request:
  - Body: module.NewWorkspace

Response:
  - 201: module.Workspace with the caller as owner
  - 400: Validation errors
  - 409: No free slug for the name
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	var input module.NewWorkspace
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return err
	}

	workspace, err := handler.workspaces.Create(request.Context(), auth.AccountID(), input)
	if err != nil {
		return err
	}

	respond.Created(writer, workspace)
	return nil
}

// GET /api/workspaces/billing lists subscriptions the caller pays for.
func (handler *Handler) billing(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	accounts, err := handler.workspaces.Billing(request.Context(), auth.AccountID())
	if err != nil {
		return err
	}

	respond.OK(writer, accounts)
	return nil
}

// GET /api/workspaces/:workspaceId
func (handler *Handler) show(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	workspace, err := handler.workspaces.Get(request.Context(), auth.WorkspaceID)
	if err != nil {
		return err
	}
	workspace.Role = string(auth.Role)

	respond.OK(writer, workspace)
	return nil
}

// GET /api/workspaces/:workspaceId/members
func (handler *Handler) members(writer http.ResponseWriter, request *http.Request) error {
	params := pagination.FromRequest(request)
	members, total, err := handler.workspaces.Members(request.Context(), requestutil.Param(request, paramWorkspaceID), params)
	if err != nil {
		return err
	}
	if members == nil {
		members = []*module.Member{}
	}

	respond.Paginated(writer, members, pagination.NewMeta(params.Page, params.Limit, total))
	return nil
}

// GET /api/workspaces/provider/:workspaceId/organization
func (handler *Handler) organization(writer http.ResponseWriter, request *http.Request) error {
	organization, err := handler.workspaces.Organization(request.Context(), requestutil.Param(request, paramWorkspaceID))
	if err != nil {
		return err
	}

	respond.OK(writer, organization)
	return nil
}

/*
PATCH /api/workspaces/provider/:workspaceId/organization

Request:
  - Body: module.OrganizationPatch (omitted fields are unchanged)

Response:
  - 200: The updated module.Organization
  - 400: Validation errors
  - 404: Not a provider workspace
*/
func (handler *Handler) updateOrganization(writer http.ResponseWriter, request *http.Request) error {
	var patch module.OrganizationPatch
	if err := requestutil.DecodeJSON(request, &patch); err != nil {
		return err
	}

	organization, err := handler.workspaces.UpdateOrganization(request.Context(), requestutil.Param(request, paramWorkspaceID), patch)
	if err != nil {
		return err
	}

	respond.OK(writer, organization)
	return nil
}

// GET /workspaces/:workspaceId renders the workspace home page.
func (handler *Handler) workspacePage(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	workspace, err := handler.workspaces.Get(request.Context(), auth.WorkspaceID)
	if err != nil {
		return err
	}

	handler.renderer.Render(writer, request, http.StatusOK, page.Workspace, map[string]any{
		"workspace": workspace,
		"account":   auth.Account.DisplayName,
	})
	return nil
}
