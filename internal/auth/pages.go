// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"

	"github.com/taibuivan/lumina/internal/oauth"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/page"
	requestutil "github.com/taibuivan/lumina/internal/platform/request"
)

// Pages serves the public pages of the sign-in flow.
type Pages struct {
	renderer  *page.Renderer
	providers *oauth.Registry
}

// NewPages constructs the sign-in page handlers.
func NewPages(renderer *page.Renderer, providers *oauth.Registry) *Pages {
	return &Pages{renderer: renderer, providers: providers}
}

// Handlers returns the page handlers keyed by route name.
func (pages *Pages) Handlers() map[string]pipeline.Handler {
	return map[string]pipeline.Handler{
		"page.home":           pages.home,
		"page.login":          pages.login,
		"page.oauth_email":    pages.oauthEmail,
		"page.oauth_start":    pages.oauthStart,
		"page.oauth_callback": pages.oauthCallback,
	}
}

// GET /
func (pages *Pages) home(writer http.ResponseWriter, request *http.Request) error {
	data := map[string]any{}
	if auth := requestutil.Auth(request); auth.Authenticated() && auth.Account != nil {
		data["account"] = auth.Account.DisplayName
	}
	pages.renderer.Render(writer, request, http.StatusOK, page.Home, data)
	return nil
}

// GET /login lists the configured providers; signed-in visitors go straight to next.
func (pages *Pages) login(writer http.ResponseWriter, request *http.Request) error {
	next := safeNext(request.URL.Query().Get("next"))

	if requestutil.Auth(request).Authenticated() {
		http.Redirect(writer, request, next, http.StatusSeeOther)
		return nil
	}

	pages.renderer.Render(writer, request, http.StatusOK, page.Login, map[string]any{
		"providers": pages.providers.Names(),
		"next":      next,
	})
	return nil
}

/*
GET /auth/oauth/start?provider=github

Description: Redirects to the provider's consent screen. The provider name
travels in the state parameter so the callback page knows where the code came from.
*/
func (pages *Pages) oauthStart(writer http.ResponseWriter, request *http.Request) error {
	provider, err := pages.providers.Lookup(request.URL.Query().Get("provider"))
	if err != nil {
		return apperr.ValidationError("Unknown identity provider")
	}

	target, err := provider.AuthCodeURL(request.Context(), provider.Name())
	if err != nil {
		return apperr.OAuthProviderError(err, false)
	}

	http.Redirect(writer, request, target, http.StatusSeeOther)
	return nil
}

// GET /auth/oauth/callback renders the page that posts the code to the API.
func (pages *Pages) oauthCallback(writer http.ResponseWriter, request *http.Request) error {
	pages.renderer.Render(writer, request, http.StatusOK, page.OAuthCallback, nil)
	return nil
}

/*
GET /auth/oauth/email?provider=github&ticket=...

Description: Asks for the email address a provider did not share. Without a
ticket there is nothing to resume, so the visitor starts over at the login page.
*/
func (pages *Pages) oauthEmail(writer http.ResponseWriter, request *http.Request) error {
	query := request.URL.Query()
	provider, ticket := query.Get("provider"), query.Get("ticket")

	if ticket == "" {
		http.Redirect(writer, request, "/login", http.StatusSeeOther)
		return nil
	}
	if _, err := pages.providers.Lookup(provider); err != nil {
		return apperr.ValidationError("Unknown identity provider")
	}

	pages.renderer.Render(writer, request, http.StatusOK, page.EmailRequired, map[string]any{
		"provider": provider,
		"ticket":   ticket,
	})
	return nil
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}
