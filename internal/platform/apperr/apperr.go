// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error taxonomy for Lumina.

It provides a rich error type that bridges the gap between low-level storage,
provider and pipeline failures and the HTTP responses produced by the
response mapper.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Taxonomy: One constructor per pipeline outcome (route not found, unauthenticated,
    forbidden, rate limited, OAuth provider failure, email required, store unavailable).
  - Mapping: Every AppError carries the HTTP status it resolves to.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses. Anything else is treated as a handler failure and mapped
to a generic 500.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeRouteNotFound      = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeOAuthProvider      = "OAUTH_PROVIDER_ERROR"
	CodeOAuthEmailRequired = "OAUTH_EMAIL_REQUIRED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeStoreUnavailable   = "AUTH_UNAVAILABLE"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the Lumina API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// Extra holds additional top-level envelope fields (e.g. needEmail).
	Extra map[string]any `json:"-"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of the error carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Pipeline Outcomes

// RouteNotFound creates the 404 returned when no registered route matches.
func RouteNotFound() *AppError {
	return &AppError{
		Code:       CodeRouteNotFound,
		Message:    "Not Found",
		HTTPStatus: http.StatusNotFound,
	}
}

// MethodNotAllowed creates a 405 [AppError].
func MethodNotAllowed() *AppError {
	return &AppError{
		Code:       CodeMethodNotAllowed,
		Message:    "Method Not Allowed",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
}

// Unauthenticated creates a 401 [AppError] for a missing, invalid or expired session.
func Unauthenticated(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthenticated,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError] for an authenticated caller lacking
// membership, permission or verification.
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
		Extra:      map[string]any{"retryAfter": retryAfterSeconds},
	}
}

// StoreUnavailable creates the fail-closed response used when the session or
// rate-limit backend cannot be reached. It is shaped like a 401 on purpose.
func StoreUnavailable(cause error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    "Authentication is temporarily unavailable",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// # OAuth Outcomes

// OAuthProviderError creates an error for a failed token exchange or profile fetch.
// rejected reports whether the provider refused the code (400) rather than failing (500).
func OAuthProviderError(cause error, rejected bool) *AppError {
	status := http.StatusInternalServerError
	msg := "Identity provider request failed"
	if rejected {
		status = http.StatusBadRequest
		msg = "Identity provider rejected the authorization code"
	}
	return &AppError{
		Code:       CodeOAuthProvider,
		Message:    msg,
		HTTPStatus: status,
		Cause:      cause,
	}
}

// OAuthEmailRequired creates the 428 outcome asking the client for an email address.
func OAuthEmailRequired(ticket string) *AppError {
	extra := map[string]any{"needEmail": true}
	if ticket != "" {
		extra["ticket"] = ticket
	}
	return &AppError{
		Code:       CodeOAuthEmailRequired,
		Message:    "The identity provider did not share an email address",
		HTTPStatus: http.StatusPreconditionRequired,
		Extra:      extra,
	}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Workspace") // Returns "Workspace not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeRouteNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
