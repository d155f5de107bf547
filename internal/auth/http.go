// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package auth contains the HTTP delivery layer for sign-in, sign-out and the
// session endpoints.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the identity and session services. They
// are responsible for:
//   - JSON request parsing.
//   - Issuing sessions and attaching or clearing the session cookies.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries. Route matching,
// session verification and rate limiting happen in the pipeline before any
// handler here runs.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/lumina/internal/cookie"
	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/oauth"
	"github.com/taibuivan/lumina/internal/pipeline"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/middleware"
	requestutil "github.com/taibuivan/lumina/internal/platform/request"
	"github.com/taibuivan/lumina/internal/platform/respond"
	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/pkg/slice"
)

// Sessions is the part of the session store the handlers drive.
type Sessions interface {
	Create(ctx context.Context, input session.NewSession) (*session.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeGroup(ctx context.Context, groupID string) (int64, error)
	ListActive(ctx context.Context, accountID string) ([]*session.Session, error)
}

// Federator completes OAuth callbacks.
type Federator interface {
	Callback(ctx context.Context, input oauth.CallbackInput) (*oauth.Result, error)
}

// Handler implements the authentication API endpoints.
type Handler struct {
	identities *identity.Service
	sessions   Sessions
	federator  Federator
	codec      *cookie.Codec
	metrics    *metrics.Metrics

	// exposeTokens returns verification tokens in API responses. Development only.
	exposeTokens bool
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(identities *identity.Service, sessions Sessions, federator Federator, codec *cookie.Codec, m *metrics.Metrics, exposeTokens bool) *Handler {
	return &Handler{
		identities:   identities,
		sessions:     sessions,
		federator:    federator,
		codec:        codec,
		metrics:      m,
		exposeTokens: exposeTokens,
	}
}

// Handlers returns the business handlers keyed by route name.
//
// # Endpoints
//   - POST /api/auth/register       : Creates an account and signs it in.
//   - POST /api/auth/login          : Signs in with email and password.
//   - POST /api/auth/oauth/callback : Completes a third-party sign-in.
//   - POST /api/auth/verify-email   : Redeems an email verification token.
//   - POST /api/auth/logout         : Revokes the current session.
//   - POST /api/auth/logout-all     : Revokes the current device family.
//   - GET  /api/auth/session        : Describes the current session.
//   - GET  /api/auth/sessions       : Lists the account's active sessions.
func (handler *Handler) Handlers() map[string]pipeline.Handler {
	return map[string]pipeline.Handler{
		"auth.register":       handler.register,
		"auth.login":          handler.login,
		"auth.oauth_callback": handler.oauthCallback,
		"auth.verify_email":   handler.verifyEmail,
		"auth.logout":         handler.logout,
		"auth.logout_all":     handler.logoutAll,
		"auth.session":        handler.currentSession,
		"auth.sessions":       handler.listSessions,
	}
}

// sessionPayload is the data block of every response that issues a session.
type sessionPayload struct {
	Session           string            `json:"session"`
	ExpireAt          int64             `json:"expireAt"`
	Account           *identity.Account `json:"account"`
	Created           bool              `json:"created"`
	VerificationToken string            `json:"verificationToken,omitempty"`
}

// # Password Sign-in

// registerRequest represents the JSON payload expected for account creation.
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	Kind        string `json:"kind"`
	DeviceInfo  string `json:"deviceInfo"`
}

/*
POST /api/auth/register

Description: Creates an identity and account, then signs the new account in.

Request:
  - Body: registerRequest

Response:
  - 201: sessionPayload with cookies attached
  - 400: Validation errors
  - 409: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) error {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return err
	}

	account, token, err := handler.identities.Register(request.Context(), identity.RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
		Phone:       input.Phone,
		Kind:        identity.Kind(input.Kind),
	})
	if err != nil {
		return err
	}

	issued, err := handler.issue(writer, request, account, input.DeviceInfo)
	if err != nil {
		return err
	}

	payload := sessionPayload{Session: issued.ID, ExpireAt: issued.ExpiresAt.Unix(), Account: account, Created: true}
	if handler.exposeTokens {
		payload.VerificationToken = token
	}

	respond.Created(writer, payload)
	return nil
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"deviceInfo"`
}

/*
POST /api/auth/login

Response:
  - 200: sessionPayload with cookies attached
  - 401: Bad credentials, without saying which part was wrong
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) error {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return err
	}

	account, err := handler.identities.Authenticate(request.Context(), input.Email, input.Password)
	if err != nil {
		return err
	}

	issued, err := handler.issue(writer, request, account, input.DeviceInfo)
	if err != nil {
		return err
	}

	respond.OK(writer, sessionPayload{Session: issued.ID, ExpireAt: issued.ExpiresAt.Unix(), Account: account})
	return nil
}

// # OAuth

// callbackRequest is the body of an OAuth callback. Either Code or Ticket is set.
type callbackRequest struct {
	Provider             string `json:"provider"`
	Code                 string `json:"code"`
	Ticket               string `json:"ticket"`
	EmailByOAuthProvider string `json:"emailByOAuthProvider"`
	DeviceInfo           string `json:"deviceInfo"`
}

/*
POST /api/auth/oauth/callback

Description: Exchanges the code, resolves the identity and issues a session
exactly like password login does.

Response:
  - 200: sessionPayload with cookies attached
  - 400: Unknown provider, or the provider rejected the code
  - 428: {needEmail: true, ticket} when no email is known
  - 500: Provider or store failure; retrying is safe
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) error {
	var input callbackRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return err
	}

	auth := requestutil.Auth(request)
	var current *session.Session
	if auth.Authenticated() {
		current = auth.Session
	}

	result, err := handler.federator.Callback(request.Context(), oauth.CallbackInput{
		Provider:      input.Provider,
		Code:          input.Code,
		Ticket:        input.Ticket,
		EmailOverride: input.EmailByOAuthProvider,
		IP:            middleware.RealIP(request),
		UserAgent:     deviceInfo(request, input.DeviceInfo),
		Current:       current,
	})
	if err != nil {
		return err
	}

	handler.codec.Attach(writer, cookie.Token{SessionID: result.Session.ID, ExpiresAt: result.Session.ExpiresAt})
	respond.OK(writer, sessionPayload{
		Session:  result.Session.ID,
		ExpireAt: result.Session.ExpiresAt.Unix(),
		Account:  result.Account,
		Created:  result.Created,
	})
	return nil
}

// # Verification

type verifyEmailRequest struct {
	Token string `json:"token"`
}

/*
POST /api/auth/verify-email

Response:
  - 200: The account with emailVerified set
  - 400: Missing, unknown or expired token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) error {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return err
	}

	account, err := handler.identities.VerifyEmail(request.Context(), input.Token)
	if err != nil {
		return err
	}

	respond.OK(writer, account)
	return nil
}

// # Session Management

// POST /api/auth/logout revokes the current session and clears the cookies.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	if err := handler.sessions.Revoke(request.Context(), auth.Session.ID); err != nil {
		return apperr.StoreUnavailable(err)
	}

	handler.codec.Clear(writer)
	respond.Message(writer, "Signed out")
	return nil
}

// POST /api/auth/logout-all revokes every session of the caller's device family.
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	revoked, err := handler.sessions.RevokeGroup(request.Context(), auth.Session.GroupID)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}

	ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "sessions_revoked",
		slog.String("group_id", auth.Session.GroupID),
		slog.Int64("count", revoked),
	)

	handler.codec.Clear(writer)
	respond.OK(writer, map[string]any{"revoked": revoked})
	return nil
}

// GET /api/auth/session describes the caller's session and account.
func (handler *Handler) currentSession(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	respond.OK(writer, map[string]any{
		"session":     auth.Session.Summarize(auth.Session.ID),
		"expireAt":    auth.Session.ExpiresAt.Unix(),
		"account":     auth.Account,
		"permissions": auth.Permissions,
	})
	return nil
}

// GET /api/auth/sessions lists the account's active sessions, newest first.
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) error {
	auth, err := requestutil.RequiredAuth(request)
	if err != nil {
		return err
	}

	sessions, err := handler.sessions.ListActive(request.Context(), auth.Session.AccountID)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}

	summaries := slice.Map(sessions, func(s *session.Session) session.Summary {
		return s.Summarize(auth.Session.ID)
	})
	if summaries == nil {
		summaries = []session.Summary{}
	}

	respond.OK(writer, summaries)
	return nil
}

// # Helpers

/*
issue creates a session for account and attaches the cookies.

A caller that already holds a session for the same account stays in its
device family, so logout-all covers both.
*/
func (handler *Handler) issue(writer http.ResponseWriter, request *http.Request, account *identity.Account, device string) (*session.Session, error) {
	input := session.NewSession{
		AccountID: account.ID,
		IP:        middleware.RealIP(request),
		UserAgent: deviceInfo(request, device),
	}
	if auth := requestutil.Auth(request); auth.Authenticated() && auth.AccountID() == account.ID {
		input.GroupID = auth.Session.GroupID
	}

	issued, err := handler.sessions.Create(request.Context(), input)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	handler.metrics.SessionIssued()
	handler.codec.Attach(writer, cookie.Token{SessionID: issued.ID, ExpiresAt: issued.ExpiresAt})
	return issued, nil
}

// deviceInfo prefers the client's own description of the device.
func deviceInfo(request *http.Request, declared string) string {
	if declared != "" {
		return declared
	}
	return request.UserAgent()
}
