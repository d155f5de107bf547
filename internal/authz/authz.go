// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authz decides whether an authenticated account may use a route.

Workspace-scoped routes are judged on the caller's membership role in the
workspace named by the path. Other routes are judged on the platform
permissions of the account kind. Verification requirements (email, phone,
two-factor) are checked last. Any lookup failure is returned as an error so
the caller can fail closed.
*/
package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/route"
)

// ErrNoMembership is returned by a [MembershipReader] when the account is not a member.
var ErrNoMembership = errors.New("authz: not a member")

// Deny reasons.
const (
	ReasonNoMembership      = "not_a_member"
	ReasonMissingPermission = "missing_permission"
	ReasonEmailUnverified   = "email_not_verified"
	ReasonPhoneUnverified   = "phone_not_verified"
	ReasonTwoFactorRequired = "two_factor_required"
)

// MembershipReader resolves an account's role in a workspace.
type MembershipReader interface {
	Role(ctx context.Context, workspaceID, accountID string) (Role, error)
}

// Decision is the outcome of [Authorizer.Authorize].
type Decision struct {
	Allowed     bool
	Reason      string
	WorkspaceID string
	Role        Role
	Permissions []Permission
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Authorizer implements route-level authorization.
type Authorizer struct {
	memberships MembershipReader
}

// New creates an [Authorizer].
func New(memberships MembershipReader) *Authorizer {
	return &Authorizer{memberships: memberships}
}

/*
Authorize evaluates a route for an account.

Parameters:
  - ctx: context.Context
  - account: *identity.Account (the verified session owner)
  - config: *route.Config
  - params: map[string]string (bound path parameters)

Returns:
  - Decision: Allowed, or denied with a Reason
  - error: membership lookup failures
*/
func (authorizer *Authorizer) Authorize(ctx context.Context, account *identity.Account, config *route.Config, params map[string]string) (Decision, error) {
	if account == nil {
		return Decision{}, errors.New("authz: account is required")
	}

	decision := Decision{Allowed: true, Permissions: KindPermissions(account.Kind)}

	if config.WorkspaceScoped {
		workspaceID := params[route.WorkspaceParam]

		ctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
		defer cancel()

		role, err := authorizer.memberships.Role(ctx, workspaceID, account.ID)
		if errors.Is(err, ErrNoMembership) {
			return deny(ReasonNoMembership), nil
		}
		if err != nil {
			return Decision{}, fmt.Errorf("authz_membership_failed: %w", err)
		}
		if !role.Valid() {
			return deny(ReasonNoMembership), nil
		}

		decision.WorkspaceID = workspaceID
		decision.Role = role
		decision.Permissions = merge(decision.Permissions, rolePermissions[role])
	}

	if config.Permission != "" && !slices.Contains(decision.Permissions, Permission(config.Permission)) {
		return deny(ReasonMissingPermission), nil
	}

	for _, requirement := range config.Require {
		if reason := unmet(account, requirement); reason != "" {
			return deny(reason), nil
		}
	}

	return decision, nil
}

func unmet(account *identity.Account, requirement route.Requirement) string {
	switch requirement {
	case route.RequireEmailVerified:
		if !account.EmailVerified {
			return ReasonEmailUnverified
		}
	case route.RequirePhoneVerified:
		if !account.PhoneVerified {
			return ReasonPhoneUnverified
		}
	case route.RequireTwoFactor:
		if !account.TwoFactorEnabled {
			return ReasonTwoFactorRequired
		}
	}
	return ""
}

func merge(base, extra []Permission) []Permission {
	out := slices.Clone(base)
	for _, permission := range extra {
		if !slices.Contains(out, permission) {
			out = append(out, permission)
		}
	}
	return out
}
