// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package page renders the server-side fallback pages (not found, forbidden,
error) and the handful of pages the auth flow needs, in the caller's locale.

Templates are embedded and parsed once at startup. Each page template defines
"title" and "content" blocks that fill the shared layout.
*/
package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Page names.
const (
	NotFound      = "not_found"
	Forbidden     = "forbidden"
	Error         = "error"
	Login         = "login"
	EmailRequired = "email_required"
	OAuthCallback = "oauth_callback"
	Home          = "home"
	Workspace     = "workspace"
	Staff         = "staff"
)

var pageNames = []string{NotFound, Forbidden, Error, Login, EmailRequired, OAuthCallback, Home, Workspace, Staff}

// View is the value every template executes against.
type View struct {
	Lang      string
	RequestID string
	Data      map[string]any

	printer *message.Printer
}

// T translates a source string into the view's locale.
func (v View) T(key string, args ...any) string {
	return v.printer.Sprintf(key, args...)
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages   map[string]*template.Template
	catalog catalog.Catalog
	matcher language.Matcher
}

// NewRenderer parses every template. It fails if any page is missing or malformed.
func NewRenderer() (*Renderer, error) {
	cat, err := newCatalog()
	if err != nil {
		return nil, fmt.Errorf("page_catalog_failed: %w", err)
	}

	layout, err := template.ParseFS(templateFiles, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("page_layout_failed: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		parsed, err := clone.ParseFS(templateFiles, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("page_template_failed: %s: %w", name, err)
		}
		pages[name] = parsed
	}

	return &Renderer{
		pages:   pages,
		catalog: cat,
		matcher: language.NewMatcher(Supported),
	}, nil
}

/*
Negotiate picks the page locale.

The first source that names a supported language wins: the lang query
parameter, then the locale cookie, then Accept-Language.
*/
func (renderer *Renderer) Negotiate(request *http.Request) language.Tag {
	candidates := []string{request.URL.Query().Get("lang")}
	if cookie, err := request.Cookie(constants.LocaleCookieName); err == nil {
		candidates = append(candidates, cookie.Value)
	}
	candidates = append(candidates, request.Header.Get("Accept-Language"))

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		desired, _, err := language.ParseAcceptLanguage(candidate)
		if err != nil || len(desired) == 0 {
			continue
		}
		if _, index, confidence := renderer.matcher.Match(desired...); confidence != language.No {
			return Supported[index]
		}
	}
	return language.English
}

// Render writes the named page with status. The locale comes from the request
// context when the wrapper has set it, otherwise it is negotiated here.
func (renderer *Renderer) Render(writer http.ResponseWriter, request *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := renderer.pages[name]
	if !ok {
		tmpl = renderer.pages[Error]
	}

	tag, ok := localeFrom(request)
	if !ok {
		tag = renderer.Negotiate(request)
	}

	view := View{
		Lang:      tag.String(),
		RequestID: ctxutil.GetRequestID(request.Context()),
		Data:      data,
		printer:   message.NewPrinter(tag, message.Catalog(renderer.catalog)),
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", view); err != nil {
		ctxutil.GetLogger(request.Context()).Error("page_render_failed", "page", name, "error", err)
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Header().Set("Content-Language", view.Lang)
	writer.Header().Set("Cache-Control", "no-store")
	writer.WriteHeader(status)
	_, _ = writer.Write(body.Bytes())
}

// ForStatus picks the fallback page for an error status.
func ForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return NotFound
	case http.StatusForbidden:
		return Forbidden
	default:
		return Error
	}
}

func localeFrom(request *http.Request) (language.Tag, bool) {
	if !ctxutil.HasLocale(request.Context()) {
		return language.Und, false
	}
	return ctxutil.GetLocale(request.Context()), true
}
