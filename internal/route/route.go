// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package route holds the static route table and the declaration-order path matcher.

Every request the server accepts is described by exactly one [Config]. The table
is decoded once from the embedded routes.yaml, validated up front and never
mutated afterwards, so a [*Registry] can be shared by every goroutine.

Patterns are slash-separated segments. A segment is either a literal or a
parameter written as ':name'. When several patterns match a path, the one
declared first wins.
*/
package route

import (
	"slices"
	"time"
)

// Kind decides how failures on a route are rendered.
type Kind string

const (
	// KindAPI routes answer with JSON envelopes.
	KindAPI Kind = "api"
	// KindPage routes answer with rendered pages and redirects.
	KindPage Kind = "page"
)

// Requirement is an account verification a route demands beyond a session.
type Requirement string

const (
	RequireEmailVerified Requirement = "email_verified"
	RequirePhoneVerified Requirement = "phone_verified"
	RequireTwoFactor     Requirement = "two_factor"
)

// WorkspaceParam is the parameter every workspace-scoped pattern must bind.
const WorkspaceParam = "workspaceId"

// RateLimit is a fixed-window request budget.
type RateLimit struct {
	Window time.Duration
	Max    int
}

// Config describes one route. Values are immutable once the registry is built.
type Config struct {
	Name            string
	Pattern         string
	Methods         []string
	Auth            bool
	Permission      string
	WorkspaceScoped bool
	Require         []Requirement
	RateLimit       *RateLimit
	Kind            Kind

	segments []segment
}

// Allows reports whether method is registered for the route.
func (c *Config) Allows(method string) bool {
	return slices.Contains(c.Methods, method)
}

// IsAPI reports whether failures render as JSON.
func (c *Config) IsAPI() bool {
	return c.Kind == KindAPI
}

// Match is the outcome of a successful lookup.
type Match struct {
	Route  *Config
	Params map[string]string
}

// Param returns the bound value of a named parameter.
func (m Match) Param(name string) string {
	return m.Params[name]
}

type segment struct {
	literal string
	param   string
}

func (s segment) isParam() bool { return s.param != "" }
