// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package route

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var tableYAML []byte

var paramNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var knownMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

var knownRequirements = map[Requirement]struct{}{
	RequireEmailVerified: {},
	RequirePhoneVerified: {},
	RequireTwoFactor:     {},
}

// Definition is the declarative form of a route as written in routes.yaml.
type Definition struct {
	Name            string           `yaml:"name"`
	Pattern         string           `yaml:"pattern"`
	Methods         []string         `yaml:"methods"`
	Auth            bool             `yaml:"auth"`
	Permission      string           `yaml:"permission"`
	WorkspaceScoped bool             `yaml:"workspace_scoped"`
	Require         []string         `yaml:"require"`
	RateLimit       *RateLimitSource `yaml:"rate_limit"`
	Kind            string           `yaml:"kind"`
}

// RateLimitSource is the YAML form of [RateLimit]; Window uses time.ParseDuration syntax.
type RateLimitSource struct {
	Window string `yaml:"window"`
	Max    int    `yaml:"max"`
}

type table struct {
	Routes []Definition `yaml:"routes"`
}

// Registry is the validated, immutable route table.
type Registry struct {
	routes []*Config
}

// Load builds the registry from the embedded routes.yaml.
func Load() (*Registry, error) {
	return Parse(tableYAML)
}

// Parse builds a registry from a YAML document with a top-level 'routes' list.
func Parse(document []byte) (*Registry, error) {
	var decoded table
	if err := yaml.Unmarshal(document, &decoded); err != nil {
		return nil, fmt.Errorf("route: decode table: %w", err)
	}
	return NewRegistry(decoded.Routes)
}

// NewRegistry validates definitions and returns the registry in declaration order.
// Any malformed or conflicting definition fails the whole table.
func NewRegistry(definitions []Definition) (*Registry, error) {
	if len(definitions) == 0 {
		return nil, errors.New("route: empty table")
	}

	names := make(map[string]struct{}, len(definitions))
	pairs := make(map[string]string, len(definitions))
	routes := make([]*Config, 0, len(definitions))

	for index, definition := range definitions {
		config, err := compile(definition)
		if err != nil {
			return nil, fmt.Errorf("route: entry %d (%q): %w", index, definition.Name, err)
		}

		if _, dup := names[config.Name]; dup {
			return nil, fmt.Errorf("route: duplicate name %q", config.Name)
		}
		names[config.Name] = struct{}{}

		shape := config.shape()
		for _, method := range config.Methods {
			key := method + " " + shape
			if other, dup := pairs[key]; dup {
				return nil, fmt.Errorf("route: %s %s declared by both %q and %q", method, config.Pattern, other, config.Name)
			}
			pairs[key] = config.Name
		}

		routes = append(routes, config)
	}

	return &Registry{routes: routes}, nil
}

// Routes returns the table in declaration order. Callers must not mutate the entries.
func (registry *Registry) Routes() []*Config {
	out := make([]*Config, len(registry.routes))
	copy(out, registry.routes)
	return out
}

// Lookup returns the route registered under name.
func (registry *Registry) Lookup(name string) (*Config, bool) {
	for _, config := range registry.routes {
		if config.Name == name {
			return config, true
		}
	}
	return nil, false
}

func compile(definition Definition) (*Config, error) {
	if strings.TrimSpace(definition.Name) == "" {
		return nil, errors.New("name is required")
	}

	segments, err := parsePattern(definition.Pattern)
	if err != nil {
		return nil, err
	}

	if len(definition.Methods) == 0 {
		return nil, errors.New("at least one method is required")
	}
	methods := make([]string, 0, len(definition.Methods))
	for _, method := range definition.Methods {
		method = strings.ToUpper(strings.TrimSpace(method))
		if _, ok := knownMethods[method]; !ok {
			return nil, fmt.Errorf("unknown method %q", method)
		}
		if slices.Contains(methods, method) {
			return nil, fmt.Errorf("method %s listed twice", method)
		}
		methods = append(methods, method)
	}

	requirements := make([]Requirement, 0, len(definition.Require))
	for _, raw := range definition.Require {
		requirement := Requirement(raw)
		if _, ok := knownRequirements[requirement]; !ok {
			return nil, fmt.Errorf("unknown requirement %q", raw)
		}
		requirements = append(requirements, requirement)
	}

	if !definition.Auth && (definition.Permission != "" || definition.WorkspaceScoped || len(requirements) > 0) {
		return nil, errors.New("permission, workspace scope and requirements need auth: true")
	}

	if definition.WorkspaceScoped && !hasParam(segments, WorkspaceParam) {
		return nil, fmt.Errorf("workspace-scoped pattern must bind :%s", WorkspaceParam)
	}

	var limit *RateLimit
	if definition.RateLimit != nil {
		window, err := time.ParseDuration(definition.RateLimit.Window)
		if err != nil || window < time.Second {
			return nil, fmt.Errorf("rate_limit window %q must be a duration of at least 1s", definition.RateLimit.Window)
		}
		if definition.RateLimit.Max < 1 {
			return nil, errors.New("rate_limit max must be positive")
		}
		limit = &RateLimit{Window: window, Max: definition.RateLimit.Max}
	}

	kind := KindPage
	switch {
	case strings.HasPrefix(definition.Pattern, "/api/"):
		kind = KindAPI
	case definition.Kind == string(KindAPI):
		kind = KindAPI
	case definition.Kind != "" && definition.Kind != string(KindPage):
		return nil, fmt.Errorf("unknown kind %q", definition.Kind)
	}

	return &Config{
		Name:            definition.Name,
		Pattern:         definition.Pattern,
		Methods:         methods,
		Auth:            definition.Auth,
		Permission:      definition.Permission,
		WorkspaceScoped: definition.WorkspaceScoped,
		Require:         requirements,
		RateLimit:       limit,
		Kind:            kind,
		segments:        segments,
	}, nil
}

func parsePattern(pattern string) ([]segment, error) {
	if pattern == "" {
		return nil, errors.New("pattern is required")
	}
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("pattern %q must start with /", pattern)
	}

	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]struct{})

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("pattern %q has an empty segment", pattern)
		}
		name, isParam := strings.CutPrefix(part, ":")
		if !isParam {
			segments = append(segments, segment{literal: part})
			continue
		}
		if !paramNameRegex.MatchString(name) {
			return nil, fmt.Errorf("pattern %q has invalid parameter %q", pattern, part)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("pattern %q binds :%s twice", pattern, name)
		}
		seen[name] = struct{}{}
		segments = append(segments, segment{param: name})
	}

	return segments, nil
}

// shape renders the pattern with parameter names erased, so /a/:x and /a/:y collide.
func (c *Config) shape() string {
	var builder strings.Builder
	for _, seg := range c.segments {
		builder.WriteByte('/')
		if seg.isParam() {
			builder.WriteByte(':')
			continue
		}
		builder.WriteString(seg.literal)
	}
	if builder.Len() == 0 {
		return "/"
	}
	return builder.String()
}

func hasParam(segments []segment, name string) bool {
	for _, seg := range segments {
		if seg.param == name {
			return true
		}
	}
	return false
}
