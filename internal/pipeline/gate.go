// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/ctxkey"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/route"
)

// Edge rejection reasons recorded in metrics.
const (
	rejectNotFound         = "not_found"
	rejectMethodNotAllowed = "method_not_allowed"
	rejectNoSession        = "no_session"
)

/*
Gate is the cheap first filter in front of the wrapper.

It matches the route and, for protected routes, checks that a syntactically
plausible session cookie is present. It never touches a store, so floods of
unknown paths or cookie-less requests cost nothing downstream.
*/
type Gate struct {
	registry  *route.Registry
	codec     *cookie.Codec
	responder *Responder
	metrics   *metrics.Metrics
}

// NewGate creates a [Gate].
func NewGate(registry *route.Registry, codec *cookie.Codec, responder *Responder, m *metrics.Metrics) *Gate {
	return &Gate{registry: registry, codec: codec, responder: responder, metrics: m}
}

// Middleware applies the gate as chi middleware.
func (gate *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		match, err := gate.registry.Match(request.Method, request.URL.Path)
		if err != nil {
			reason := rejectNotFound
			if errors.Is(err, route.ErrMethodNotAllowed) {
				reason = rejectMethodNotAllowed
			}
			gate.metrics.EdgeRejected(reason)
			gate.responder.Error(writer, request, nil, matchError(writer, err))
			return
		}

		if match.Route.Auth && !cookie.Plausible(gate.codec.Extract(request)) {
			gate.metrics.EdgeRejected(rejectNoSession)
			gate.responder.Error(writer, request, match.Route, apperr.Unauthenticated("Authentication required"))
			return
		}

		ctx := context.WithValue(request.Context(), ctxkey.KeyMatch, match)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// GateMatch returns the match the gate stored. The wrapper does not rely on it.
func GateMatch(ctx context.Context) (route.Match, bool) {
	match, ok := ctx.Value(ctxkey.KeyMatch).(route.Match)
	return match, ok
}
