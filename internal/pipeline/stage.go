// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/lumina/internal/authctx"
	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/middleware"
	"github.com/taibuivan/lumina/internal/ratelimit"
	"github.com/taibuivan/lumina/internal/route"
	"github.com/taibuivan/lumina/internal/session"
)

// Exchange is the state threaded through the stages of one request.
type Exchange struct {
	Writer  http.ResponseWriter
	Request *http.Request

	Match    route.Match
	Session  *session.Session
	Account  *identity.Account
	Decision authz.Decision
	Auth     *authctx.AuthContext
}

// Route returns the matched route, or nil before ResolveRoute ran.
func (exchange *Exchange) Route() *route.Config {
	return exchange.Match.Route
}

// Stage is one step of the wrapper. A non-nil error stops the request and is
// written by the [Responder].
type Stage struct {
	Name string
	Run  func(ctx context.Context, exchange *Exchange) error
}

// Stage names, in execution order.
const (
	StageResolveRoute  = "resolve_route"
	StageVerifySession = "verify_session"
	StageRenewSession  = "renew_session"
	StageAuthorize     = "authorize"
	StageRateLimit     = "rate_limit"
	StageBuildContext  = "build_context"
)

// Stages returns the wrapper's ordered stage list.
func (wrapper *Wrapper) Stages() []Stage {
	return []Stage{
		{Name: StageResolveRoute, Run: wrapper.resolveRoute},
		{Name: StageVerifySession, Run: wrapper.verifySession},
		{Name: StageRenewSession, Run: wrapper.renewSession},
		{Name: StageAuthorize, Run: wrapper.authorize},
		{Name: StageRateLimit, Run: wrapper.rateLimit},
		{Name: StageBuildContext, Run: wrapper.buildContext},
	}
}

// resolveRoute matches the request again rather than trusting the gate.
func (wrapper *Wrapper) resolveRoute(ctx context.Context, exchange *Exchange) error {
	match, err := wrapper.registry.Match(exchange.Request.Method, exchange.Request.URL.Path)
	if err != nil {
		return matchError(exchange.Writer, err)
	}

	if upstream, ok := GateMatch(ctx); ok && upstream.Route != match.Route {
		ctxutil.GetLogger(ctx).Warn("route_match_diverged",
			slog.String("gate_route", upstream.Route.Name),
			slog.String("route", match.Route.Name),
		)
	}

	exchange.Match = match
	return nil
}

/*
verifySession resolves the session cookie.

Protected routes fail closed: a missing, unknown, revoked or expired session is
a 401 that also clears the cookies, and an unreachable store is a 401-shaped
AUTH_UNAVAILABLE. Public routes verify softly and continue anonymously.
*/
func (wrapper *Wrapper) verifySession(ctx context.Context, exchange *Exchange) error {
	required := exchange.Route().Auth
	token := wrapper.codec.Extract(exchange.Request)

	if !cookie.Plausible(token) {
		if !required {
			return nil
		}
		wrapper.codec.Clear(exchange.Writer)
		return apperr.Unauthenticated("Authentication required")
	}

	verified, err := wrapper.sessions.Verify(ctx, token.SessionID)
	switch {
	case errors.Is(err, session.ErrAbsent):
		wrapper.codec.Clear(exchange.Writer)
		if !required {
			return nil
		}
		return apperr.Unauthenticated("Session expired or invalid")
	case err != nil:
		wrapper.metrics.StoreFailed("session")
		ctxutil.GetLogger(ctx).Error("session_store_unavailable", slog.String("error", err.Error()))
		if !required {
			return nil
		}
		return apperr.StoreUnavailable(err)
	}

	exchange.Session = verified
	if !required {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	account, err := wrapper.accounts.FindAccountByID(lookupCtx, verified.AccountID)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		wrapper.codec.Clear(exchange.Writer)
		return apperr.Unauthenticated("Session expired or invalid")
	case err != nil:
		wrapper.metrics.StoreFailed("account")
		ctxutil.GetLogger(ctx).Error("account_store_unavailable", slog.String("error", err.Error()))
		return apperr.StoreUnavailable(err)
	}

	exchange.Account = account
	return nil
}

// renewSession slides the expiry of a live session and re-sends the cookies.
// Failures are logged and ignored: the session is still valid as it is.
func (wrapper *Wrapper) renewSession(ctx context.Context, exchange *Exchange) error {
	if exchange.Session == nil {
		return nil
	}

	renewed, err := wrapper.sessions.Extend(ctx, exchange.Session)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("session_renew_failed", slog.String("error", err.Error()))
		return nil
	}
	if renewed {
		wrapper.codec.Attach(exchange.Writer, cookie.Token{
			SessionID: exchange.Session.ID,
			ExpiresAt: exchange.Session.ExpiresAt,
		})
	}
	return nil
}

var denyMessages = map[string]string{
	authz.ReasonNoMembership:      "You are not a member of this workspace",
	authz.ReasonMissingPermission: "You do not have permission to perform this action",
	authz.ReasonEmailUnverified:   "Verify your email address to continue",
	authz.ReasonPhoneUnverified:   "Verify your phone number to continue",
	authz.ReasonTwoFactorRequired: "Two-factor authentication is required",
}

func (wrapper *Wrapper) authorize(ctx context.Context, exchange *Exchange) error {
	if !exchange.Route().Auth {
		return nil
	}

	decision, err := wrapper.authorizer.Authorize(ctx, exchange.Account, exchange.Route(), exchange.Match.Params)
	if err != nil {
		wrapper.metrics.StoreFailed("membership")
		ctxutil.GetLogger(ctx).Error("authz_lookup_failed", slog.String("error", err.Error()))
		return apperr.StoreUnavailable(err)
	}

	if !decision.Allowed {
		ctxutil.GetLogger(ctx).Info("authz_denied",
			slog.String("account_id", exchange.Account.ID),
			slog.String("reason", decision.Reason),
		)
		message, ok := denyMessages[decision.Reason]
		if !ok {
			message = "Access denied"
		}
		return apperr.Forbidden(message)
	}

	exchange.Decision = decision
	return nil
}

// rateLimit counts the request against the route budget, keyed by account
// when authenticated and by client IP otherwise. A failing backend denies.
func (wrapper *Wrapper) rateLimit(ctx context.Context, exchange *Exchange) error {
	limit := exchange.Route().RateLimit
	if limit == nil {
		return nil
	}

	subject := "ip:" + middleware.RealIP(exchange.Request)
	if exchange.Session != nil {
		subject = "account:" + exchange.Session.AccountID
	}

	result, err := wrapper.limiter.Allow(ctx, ratelimit.Key(exchange.Route().Name, subject), *limit)
	if err != nil {
		wrapper.metrics.StoreFailed("ratelimit")
		ctxutil.GetLogger(ctx).Error("ratelimit_store_unavailable", slog.String("error", err.Error()))
		return apperr.StoreUnavailable(err)
	}

	if !result.Allowed {
		seconds := result.RetryAfterSeconds()
		exchange.Writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(seconds))
		return apperr.RateLimited(seconds)
	}
	return nil
}

// buildContext publishes the request's AuthContext, logger and locale.
func (wrapper *Wrapper) buildContext(ctx context.Context, exchange *Exchange) error {
	locale := wrapper.pages.Negotiate(exchange.Request)

	logger := ctxutil.GetLogger(ctx).With(slog.String("route", exchange.Route().Name))
	if exchange.Session != nil {
		logger = logger.With(slog.String("account_id", exchange.Session.AccountID))
	}
	if exchange.Decision.WorkspaceID != "" {
		logger = logger.With(slog.String("workspace_id", exchange.Decision.WorkspaceID))
	}

	exchange.Auth = &authctx.AuthContext{
		Session:     exchange.Session,
		Account:     exchange.Account,
		WorkspaceID: exchange.Decision.WorkspaceID,
		Role:        exchange.Decision.Role,
		Permissions: exchange.Decision.Permissions,
		Params:      exchange.Match.Params,
		Route:       exchange.Route(),
		RequestID:   ctxutil.GetRequestID(ctx),
		Logger:      logger,
		Locale:      locale,
	}

	ctx = authctx.With(ctx, exchange.Auth)
	ctx = ctxutil.WithLogger(ctx, logger)
	ctx = ctxutil.WithLocale(ctx, locale)
	exchange.Request = exchange.Request.WithContext(ctx)
	return nil
}
