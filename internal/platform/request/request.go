// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

Path parameters come from the route match the handler wrapper published, not
from the HTTP router, so handlers only ever see values the registry bound.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taibuivan/lumina/internal/authctx"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, a 400 if the body is too large
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.ValidationError("Request body is too large")
		}
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param retrieves a named path parameter bound by the route matcher.
func Param(request *http.Request, name string) string {
	return authctx.From(request.Context()).Param(name)
}

// Auth returns the request's auth context, nil outside the handler wrapper.
func Auth(request *http.Request) *authctx.AuthContext {
	return authctx.From(request.Context())
}

/*
RequiredAuth returns the auth context of an authenticated request.

Returns:
  - *authctx.AuthContext: with a verified session
  - error: 401 if the request is anonymous
*/
func RequiredAuth(request *http.Request) (*authctx.AuthContext, error) {
	auth := authctx.From(request.Context())
	if !auth.Authenticated() {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	return auth, nil
}
