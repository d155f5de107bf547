// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package route

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrNotFound means no pattern matches the path.
	ErrNotFound = errors.New("route: not found")

	// ErrMethodNotAllowed means a pattern matches the path but not for the method.
	ErrMethodNotAllowed = errors.New("route: method not allowed")
)

// MethodMismatchError carries the methods a matching path does accept.
// It satisfies errors.Is(err, ErrMethodNotAllowed).
type MethodMismatchError struct {
	Allowed []string
}

func (e *MethodMismatchError) Error() string {
	return ErrMethodNotAllowed.Error() + " (allowed: " + strings.Join(e.Allowed, ", ") + ")"
}

func (e *MethodMismatchError) Is(target error) bool {
	return target == ErrMethodNotAllowed
}

// Match returns the first route, in declaration order, whose pattern matches path
// and whose method set contains method.
//
// Trailing slashes are ignored and an empty segment never binds a parameter.
// Matching is pure: the same registry, method and path always yield the same result.
func (registry *Registry) Match(method, path string) (Match, error) {
	parts := splitPath(path)

	var allowed []string
	for _, config := range registry.routes {
		params, ok := config.bind(parts)
		if !ok {
			continue
		}
		if config.Allows(method) {
			return Match{Route: config, Params: params}, nil
		}
		for _, candidate := range config.Methods {
			if !slices.Contains(allowed, candidate) {
				allowed = append(allowed, candidate)
			}
		}
	}

	if len(allowed) > 0 {
		return Match{}, &MethodMismatchError{Allowed: allowed}
	}
	return Match{}, ErrNotFound
}

func (c *Config) bind(parts []string) (map[string]string, bool) {
	if len(parts) != len(c.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for index, seg := range c.segments {
		part := parts[index]
		if seg.isParam() {
			if part == "" {
				return nil, false
			}
			params[seg.param] = part
			continue
		}
		if part != seg.literal {
			return nil, false
		}
	}
	return params, true
}

// splitPath splits an absolute path into segments, ignoring one trailing slash.
// The root path has no segments.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
