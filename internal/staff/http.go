// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package staff

import (
	"net/http"

	"github.com/taibuivan/lumina/internal/module"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/page"
	requestutil "github.com/taibuivan/lumina/internal/platform/request"
	"github.com/taibuivan/lumina/internal/platform/respond"
)

// Handler exposes the staff console.
type Handler struct {
	staff    module.Staff
	renderer *page.Renderer
}

// NewHandler constructs a new staff [Handler].
func NewHandler(staff module.Staff, renderer *page.Renderer) *Handler {
	return &Handler{staff: staff, renderer: renderer}
}

// Handlers returns the business handlers keyed by route name.
func (handler *Handler) Handlers() map[string]pipeline.Handler {
	return map[string]pipeline.Handler{
		"staff.overview": handler.overview,
		"page.staff":     handler.console,
	}
}

// GET /api/staff/overview
func (handler *Handler) overview(writer http.ResponseWriter, request *http.Request) error {
	overview, err := handler.staff.Overview(request.Context())
	if err != nil {
		return err
	}

	respond.OK(writer, overview)
	return nil
}

// GET /staff
func (handler *Handler) console(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	overview, err := handler.staff.Overview(request.Context())
	if err != nil {
		return err
	}

	handler.renderer.Render(writer, request, http.StatusOK, page.Staff, map[string]any{
		"account":  auth.Account.DisplayName,
		"overview": overview,
	})
	return nil
}
