// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth federates third-party identities onto Lumina accounts.

A callback moves through a fixed sequence: the code is exchanged, the profile
is fetched, an email is settled on, the identity is resolved to an account
(linking or creating as needed) and a session is issued. Provider failures and
a missing email stop the sequence before anything is written.
*/
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/metrics"
	"github.com/taibuivan/lumina/internal/platform/sec"
	"github.com/taibuivan/lumina/internal/platform/validate"
	"github.com/taibuivan/lumina/internal/session"
)

// Callback outcomes recorded in metrics.
const (
	OutcomeCreated       = "created"
	OutcomeLinked        = "linked"
	OutcomeExisting      = "existing"
	OutcomeEmailRequired = "email_required"
	OutcomeProviderError = "provider_error"
	OutcomeFailed        = "failed"
)

// Ticket payload keys.
const (
	ticketProviderID    = "pid"
	ticketEmail         = "email"
	ticketEmailVerified = "ev"
	ticketDisplayName   = "name"
	ticketAvatarURL     = "avatar"
)

// SessionIssuer creates login sessions.
type SessionIssuer interface {
	Create(ctx context.Context, input session.NewSession) (*session.Session, error)
}

// CallbackInput is a single OAuth callback.
type CallbackInput struct {
	Provider string
	// Code is the authorization code. Either Code or Ticket is required.
	Code string
	// Ticket resumes a callback that previously stopped for a missing email.
	Ticket string
	// EmailOverride is the user-supplied email used when the provider has none.
	EmailOverride string
	IP            string
	UserAgent     string
	// Current is the caller's existing session, if any; its group is reused.
	Current *session.Session
}

// Result is a successful federation.
type Result struct {
	Session *session.Session
	Account *identity.Account
	Created bool
	Outcome string
}

// Federator runs OAuth callbacks.
type Federator struct {
	providers *Registry
	accounts  identity.Repository
	sessions  SessionIssuer
	tickets   *sec.TicketSigner
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// NewFederator wires a [Federator]. metrics may be nil.
func NewFederator(providers *Registry, accounts identity.Repository, sessions SessionIssuer, tickets *sec.TicketSigner, m *metrics.Metrics) *Federator {
	return &Federator{
		providers: providers,
		accounts:  accounts,
		sessions:  sessions,
		tickets:   tickets,
		metrics:   m,
		tracer:    otel.Tracer("github.com/taibuivan/lumina/internal/oauth"),
	}
}

/*
Callback resolves an OAuth callback to an account and a fresh session.

Returns:
  - *Result: the session, the account and whether it was just created
  - error: an [apperr.AppError] for every expected failure
*/
func (federator *Federator) Callback(ctx context.Context, input CallbackInput) (*Result, error) {
	ctx, span := federator.tracer.Start(ctx, "oauth.callback",
		trace.WithAttributes(attribute.String("oauth.provider", input.Provider)))
	defer span.End()

	result, err := federator.callback(ctx, input)

	outcome := OutcomeFailed
	switch {
	case err == nil:
		outcome = result.Outcome
		span.SetAttributes(attribute.Bool("oauth.created", result.Created))
	case apperr.HasCode(err, apperr.CodeOAuthEmailRequired):
		outcome = OutcomeEmailRequired
	case apperr.HasCode(err, apperr.CodeOAuthProvider):
		outcome = OutcomeProviderError
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("oauth.outcome", outcome))

	if _, lookupErr := federator.providers.Lookup(input.Provider); lookupErr == nil {
		federator.metrics.OAuthCallback(input.Provider, outcome)
	}

	return result, err
}

func (federator *Federator) callback(ctx context.Context, input CallbackInput) (*Result, error) {
	logger := ctxutil.GetLogger(ctx)

	provider, err := federator.providers.Lookup(input.Provider)
	if err != nil {
		return nil, apperr.ValidationError("Unknown OAuth provider",
			apperr.FieldError{Field: "provider", Message: "is not supported"})
	}

	profile, err := federator.profile(ctx, provider, input)
	if err != nil {
		return nil, err
	}

	email, verified, err := settleEmail(profile, input.EmailOverride)
	if err != nil {
		return nil, err
	}

	if email == "" {
		ticket, err := federator.tickets.Issue(audience(provider.Name()), encodeProfile(profile))
		if err != nil {
			return nil, apperr.Internal(err)
		}
		logger.Info("oauth_email_required", slog.String("provider", provider.Name()))
		return nil, apperr.OAuthEmailRequired(ticket)
	}

	account, outcome, err := federator.resolve(ctx, profile, email, verified)
	if err != nil {
		return nil, err
	}

	groupID := ""
	if input.Current != nil && input.Current.AccountID == account.ID {
		groupID = input.Current.GroupID
	}

	issued, err := federator.sessions.Create(ctx, session.NewSession{
		AccountID: account.ID,
		GroupID:   groupID,
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("oauth_session_failed: %w", err))
	}
	federator.metrics.SessionIssued()

	logger.Info("oauth_login_succeeded",
		slog.String("provider", provider.Name()),
		slog.String("account_id", account.ID),
		slog.String("outcome", outcome),
	)

	return &Result{
		Session: issued,
		Account: account,
		Created: outcome == OutcomeCreated,
		Outcome: outcome,
	}, nil
}

// profile obtains the provider profile from a code or from a continuation ticket.
func (federator *Federator) profile(ctx context.Context, provider Provider, input CallbackInput) (*Profile, error) {
	if input.Ticket != "" {
		payload, err := federator.tickets.Verify(audience(provider.Name()), input.Ticket)
		if err != nil {
			return nil, apperr.ValidationError("OAuth ticket is invalid or expired",
				apperr.FieldError{Field: "ticket", Message: "is invalid or expired"})
		}
		return decodeProfile(provider.Name(), payload), nil
	}

	if strings.TrimSpace(input.Code) == "" {
		return nil, apperr.ValidationError("Authorization code is required",
			apperr.FieldError{Field: "code", Message: "is required"})
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ProviderTimeout)
	defer cancel()

	token, err := provider.Exchange(ctx, input.Code)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("oauth_exchange_failed", slog.String("provider", provider.Name()), slog.String("error", err.Error()))
		return nil, apperr.OAuthProviderError(fmt.Errorf("oauth_exchange_failed: %w", err), Rejected(err))
	}

	profile, err := provider.Profile(ctx, token)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("oauth_profile_failed", slog.String("provider", provider.Name()), slog.String("error", err.Error()))
		return nil, apperr.OAuthProviderError(fmt.Errorf("oauth_profile_failed: %w", err), false)
	}
	if profile.ProviderID == "" {
		return nil, apperr.OAuthProviderError(errors.New("oauth_profile_failed: empty subject"), false)
	}

	profile.Provider = provider.Name()
	return profile, nil
}

// settleEmail picks the provider email, falling back to the user override.
// An overridden email is never considered verified.
func settleEmail(profile *Profile, override string) (string, bool, error) {
	if email := identity.NormalizeEmail(profile.Email); email != "" {
		return email, profile.EmailVerified, nil
	}

	email := identity.NormalizeEmail(override)
	if email == "" {
		return "", false, nil
	}

	validator := &validate.Validator{}
	if err := validator.Email("emailByOAuthProvider", email).Err(); err != nil {
		return "", false, err
	}
	return email, false, nil
}

/*
resolve maps the profile to an account.

Order: existing link, then an account owning the email (linked now), then a
brand new account. A unique violation means a concurrent callback won the race;
resolution restarts once and then finds the winner's rows.
*/
func (federator *Federator) resolve(ctx context.Context, profile *Profile, email string, verified bool) (*identity.Account, string, error) {
	for attempt := 0; ; attempt++ {
		account, outcome, err := federator.resolveOnce(ctx, profile, email, verified)
		if err == nil {
			return account, outcome, nil
		}

		raced := errors.Is(err, identity.ErrEmailTaken) || errors.Is(err, identity.ErrLinkTaken)
		if raced && attempt == 0 {
			ctxutil.GetLogger(ctx).Info("oauth_resolve_retry", slog.String("provider", profile.Provider), slog.String("reason", err.Error()))
			continue
		}

		if errors.Is(err, identity.ErrLinkConflict) {
			return nil, "", apperr.Conflict("This provider account is linked to another user").WithCause(err)
		}
		if raced {
			return nil, "", apperr.Conflict("Account is being created by another request").WithCause(err)
		}
		return nil, "", apperr.Internal(fmt.Errorf("oauth_resolve_failed: %w", err))
	}
}

func (federator *Federator) resolveOnce(ctx context.Context, profile *Profile, email string, verified bool) (*identity.Account, string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	link, err := federator.accounts.FindLink(ctx, profile.Provider, profile.ProviderID)
	switch {
	case err == nil:
		account, err := federator.accounts.FindAccountByID(ctx, link.AccountID)
		if err != nil {
			return nil, "", err
		}
		return account, OutcomeExisting, nil
	case !errors.Is(err, identity.ErrNotFound):
		return nil, "", err
	}

	candidate := &identity.Link{
		Provider:    profile.Provider,
		ProviderID:  profile.ProviderID,
		Email:       email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}

	account, err := federator.accounts.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		candidate.AccountID = account.ID
		stored, err := federator.accounts.CreateLink(ctx, candidate)
		if err != nil {
			return nil, "", err
		}
		if stored.AccountID != account.ID {
			return nil, "", identity.ErrLinkConflict
		}
		return account, OutcomeLinked, nil
	case !errors.Is(err, identity.ErrNotFound):
		return nil, "", err
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	account, err = federator.accounts.CreateAccount(ctx, identity.NewAccount{
		Email:         email,
		EmailVerified: verified,
		DisplayName:   displayName,
		AvatarURL:     profile.AvatarURL,
		Kind:          identity.KindStudent,
	}, candidate)
	if err != nil {
		return nil, "", err
	}
	return account, OutcomeCreated, nil
}

func audience(provider string) string {
	return "oauth:" + provider
}

func encodeProfile(profile *Profile) map[string]string {
	return map[string]string{
		ticketProviderID:    profile.ProviderID,
		ticketEmail:         profile.Email,
		ticketEmailVerified: strconv.FormatBool(profile.EmailVerified),
		ticketDisplayName:   profile.DisplayName,
		ticketAvatarURL:     profile.AvatarURL,
	}
}

func decodeProfile(provider string, payload map[string]string) *Profile {
	verified, _ := strconv.ParseBool(payload[ticketEmailVerified])
	return &Profile{
		Provider:      provider,
		ProviderID:    payload[ticketProviderID],
		Email:         payload[ticketEmail],
		EmailVerified: verified,
		DisplayName:   payload[ticketDisplayName],
		AvatarURL:     payload[ticketAvatarURL],
	}
}
