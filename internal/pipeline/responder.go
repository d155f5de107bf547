// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/page"
	"github.com/taibuivan/lumina/internal/platform/respond"
	"github.com/taibuivan/lumina/internal/route"
)

// Responder turns errors into responses shaped for the route kind: JSON
// envelopes for API routes, rendered pages and login redirects for pages.
type Responder struct {
	pages *page.Renderer
}

// NewResponder creates a [Responder].
func NewResponder(pages *page.Renderer) *Responder {
	return &Responder{pages: pages}
}

// Error writes err. config may be nil when no route matched.
func (responder *Responder) Error(writer http.ResponseWriter, request *http.Request, config *route.Config, err error) {
	if isAPI(request, config) {
		respond.Error(writer, request, err)
		return
	}

	appError := respond.Normalize(request, err)
	if appError.HTTPStatus == http.StatusUnauthorized {
		http.Redirect(writer, request, LoginRedirect(request), http.StatusSeeOther)
		return
	}

	responder.pages.Render(writer, request, appError.HTTPStatus, page.ForStatus(appError.HTTPStatus), nil)
}

// LoginRedirect is the login URL that returns the caller to the current page.
func LoginRedirect(request *http.Request) string {
	return constants.LoginPath + "?next=" + url.QueryEscape(request.URL.RequestURI())
}

func isAPI(request *http.Request, config *route.Config) bool {
	if config != nil {
		return config.IsAPI()
	}
	return strings.HasPrefix(request.URL.Path, "/api/") || request.URL.Path == "/api"
}

// matchError converts a matcher failure, setting Allow for method mismatches.
func matchError(writer http.ResponseWriter, err error) *apperr.AppError {
	var mismatch *route.MethodMismatchError
	if errors.As(err, &mismatch) {
		writer.Header().Set(constants.HeaderAllow, strings.Join(mismatch.Allowed, ", "))
		return apperr.MethodNotAllowed()
	}
	return apperr.RouteNotFound()
}
