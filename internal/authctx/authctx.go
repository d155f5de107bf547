// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authctx carries the outcome of the handler wrapper to business handlers.
package authctx

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/text/language"

	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/platform/ctxkey"
	"github.com/taibuivan/lumina/internal/route"
	"github.com/taibuivan/lumina/internal/session"
)

// AuthContext is built once per request and never persisted.
type AuthContext struct {
	Session     *session.Session
	Account     *identity.Account
	WorkspaceID string
	Role        authz.Role
	Permissions []authz.Permission
	Params      map[string]string
	Route       *route.Config
	RequestID   string
	Logger      *slog.Logger
	Locale      language.Tag
}

// Authenticated reports whether the request carries a verified session.
func (a *AuthContext) Authenticated() bool {
	return a != nil && a.Session != nil
}

// AccountID returns the session owner, or "" for anonymous requests.
func (a *AuthContext) AccountID() string {
	if !a.Authenticated() {
		return ""
	}
	return a.Session.AccountID
}

// Can reports whether the caller holds permission.
func (a *AuthContext) Can(permission authz.Permission) bool {
	return a != nil && slices.Contains(a.Permissions, permission)
}

// Param returns a bound path parameter.
func (a *AuthContext) Param(name string) string {
	if a == nil {
		return ""
	}
	return a.Params[name]
}

// With returns a context carrying auth.
func With(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAuth, auth)
}

// From returns the request's AuthContext, or nil outside the wrapper.
func From(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(ctxkey.KeyAuth).(*AuthContext)
	return auth
}
