// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pipeline authenticates and authorizes every request.

Two layers run in sequence:

  - Gate: a chi middleware that matches the route and rejects unknown paths
    and cookie-less requests to protected routes without any store access.
  - Wrapper: an ordered list of stages (resolve, verify, renew, authorize,
    rate-limit, build context) followed by the business handler bound to the
    matched route name.

Whatever happens, the wrapper writes exactly one response and one
request_complete log line.
*/
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/page"
	"github.com/taibuivan/lumina/internal/ratelimit"
	"github.com/taibuivan/lumina/internal/route"
	"github.com/taibuivan/lumina/internal/session"
)

// Handler is a business handler. Returned errors go through the [Responder].
type Handler func(writer http.ResponseWriter, request *http.Request) error

// FromHTTP adapts a plain [http.Handler] that never fails.
func FromHTTP(handler http.Handler) Handler {
	return func(writer http.ResponseWriter, request *http.Request) error {
		handler.ServeHTTP(writer, request)
		return nil
	}
}

// SessionStore verifies and renews sessions.
type SessionStore interface {
	Verify(ctx context.Context, id string) (*session.Session, error)
	Extend(ctx context.Context, session *session.Session) (bool, error)
}

// AccountReader loads the owner of a verified session.
type AccountReader interface {
	FindAccountByID(ctx context.Context, id string) (*identity.Account, error)
}

// Authorizer decides whether an account may use a route.
type Authorizer interface {
	Authorize(ctx context.Context, account *identity.Account, config *route.Config, params map[string]string) (authz.Decision, error)
}

// Dependencies are the collaborators of a [Wrapper].
type Dependencies struct {
	Registry   *route.Registry
	Codec      *cookie.Codec
	Sessions   SessionStore
	Accounts   AccountReader
	Authorizer Authorizer
	Limiter    ratelimit.Limiter
	Pages      *page.Renderer
	Responder  *Responder
	Metrics    *metrics.Metrics
}

// Wrapper runs the stage list and dispatches to business handlers.
type Wrapper struct {
	registry   *route.Registry
	codec      *cookie.Codec
	sessions   SessionStore
	accounts   AccountReader
	authorizer Authorizer
	limiter    ratelimit.Limiter
	pages      *page.Renderer
	responder  *Responder
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// NewWrapper creates a [Wrapper].
func NewWrapper(deps Dependencies) *Wrapper {
	return &Wrapper{
		registry:   deps.Registry,
		codec:      deps.Codec,
		sessions:   deps.Sessions,
		accounts:   deps.Accounts,
		authorizer: deps.Authorizer,
		limiter:    deps.Limiter,
		pages:      deps.Pages,
		responder:  deps.Responder,
		metrics:    deps.Metrics,
		tracer:     otel.Tracer("github.com/taibuivan/lumina/internal/pipeline"),
	}
}

// Bind returns the dispatcher for handlers keyed by route name. Every route in
// the registry must have a handler and every handler must name a route.
func (wrapper *Wrapper) Bind(handlers map[string]Handler) (http.Handler, error) {
	for _, config := range wrapper.registry.Routes() {
		if _, ok := handlers[config.Name]; !ok {
			return nil, fmt.Errorf("pipeline: no handler bound to route %q", config.Name)
		}
	}
	for name := range handlers {
		if _, ok := wrapper.registry.Lookup(name); !ok {
			return nil, fmt.Errorf("pipeline: handler bound to unknown route %q", name)
		}
	}

	bound := make(map[string]Handler, len(handlers))
	for name, handler := range handlers {
		bound[name] = handler
	}

	return &dispatcher{wrapper: wrapper, stages: wrapper.Stages(), handlers: bound}, nil
}

type dispatcher struct {
	wrapper  *Wrapper
	stages   []Stage
	handlers map[string]Handler
}

func (d *dispatcher) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	wrapper := d.wrapper
	started := time.Now()

	ctx, span := wrapper.tracer.Start(request.Context(), "pipeline.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", request.Method),
			attribute.String("http.target", request.URL.Path),
		))
	defer span.End()

	recorder := &statusRecorder{ResponseWriter: writer}
	exchange := &Exchange{Writer: recorder, Request: request.WithContext(ctx)}

	defer wrapper.complete(ctxutil.GetLogger(request.Context()), exchange, recorder, span, started)
	defer wrapper.recoverPanic(exchange, recorder)

	for _, stage := range d.stages {
		if err := stage.Run(exchange.Request.Context(), exchange); err != nil {
			wrapper.metrics.StageDenied(stage.Name, errorCode(err))
			span.SetAttributes(attribute.String("pipeline.stopped_at", stage.Name))
			wrapper.responder.Error(recorder, exchange.Request, exchange.Route(), err)
			return
		}
	}

	handler := d.handlers[exchange.Route().Name]
	if err := handler(recorder, exchange.Request); err != nil {
		if recorder.wroteHeader {
			ctxutil.GetLogger(exchange.Request.Context()).Error("handler_error_after_write", slog.String("error", err.Error()))
			return
		}
		wrapper.responder.Error(recorder, exchange.Request, exchange.Route(), err)
	}
}

func (wrapper *Wrapper) recoverPanic(exchange *Exchange, recorder *statusRecorder) {
	recovered := recover()
	if recovered == nil {
		return
	}
	if recovered == http.ErrAbortHandler {
		panic(recovered)
	}

	stack := make([]byte, 4096)
	stack = stack[:runtime.Stack(stack, false)]
	ctxutil.GetLogger(exchange.Request.Context()).Error("handler_panic",
		slog.Any("error", recovered),
		slog.String("stack", string(stack)),
	)

	if !recorder.wroteHeader {
		wrapper.responder.Error(recorder, exchange.Request, exchange.Route(), apperr.Internal(fmt.Errorf("panic: %v", recovered)))
	}
}

// complete emits the request_complete line, metrics and span status.
func (wrapper *Wrapper) complete(logger *slog.Logger, exchange *Exchange, recorder *statusRecorder, span trace.Span, started time.Time) {
	elapsed := time.Since(started)
	status := recorder.Status()

	routeName, pattern := "unmatched", ""
	if config := exchange.Route(); config != nil {
		routeName, pattern = config.Name, config.Pattern
	}

	attrs := []slog.Attr{
		slog.Int("status", status),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.String("route", routeName),
		slog.String("pattern", pattern),
	}
	if exchange.Session != nil {
		attrs = append(attrs, slog.String("account_id", exchange.Session.AccountID))
	}
	if exchange.Decision.WorkspaceID != "" {
		attrs = append(attrs, slog.String("workspace_id", exchange.Decision.WorkspaceID))
	}

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.LogAttrs(exchange.Request.Context(), level, "request_complete", attrs...)

	wrapper.metrics.ObserveRequest(routeName, exchange.Request.Method, status, elapsed)

	span.SetAttributes(
		attribute.String("route.name", routeName),
		attribute.Int("http.status_code", status),
	)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func errorCode(err error) string {
	if appError := apperr.As(err); appError != nil {
		return appError.Code
	}
	return apperr.CodeInternal
}

// statusRecorder remembers the status written by downstream code.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (recorder *statusRecorder) WriteHeader(status int) {
	if !recorder.wroteHeader {
		recorder.status = status
		recorder.wroteHeader = true
	}
	recorder.ResponseWriter.WriteHeader(status)
}

func (recorder *statusRecorder) Write(body []byte) (int, error) {
	if !recorder.wroteHeader {
		recorder.WriteHeader(http.StatusOK)
	}
	return recorder.ResponseWriter.Write(body)
}

// Status is the written status, 200 if the handler wrote nothing.
func (recorder *statusRecorder) Status() int {
	if !recorder.wroteHeader {
		return http.StatusOK
	}
	return recorder.status
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (recorder *statusRecorder) Unwrap() http.ResponseWriter {
	return recorder.ResponseWriter
}
