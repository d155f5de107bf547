// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/module"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/platform/validate"
	"github.com/taibuivan/lumina/pkg/pagination"
	"github.com/taibuivan/lumina/pkg/pointer"
	"github.com/taibuivan/lumina/pkg/slug"
	"github.com/taibuivan/lumina/pkg/uuid"
)

// # Service Layer

// Service implements [module.Workspaces] and the authorizer's membership lookup.
type Service struct {
	repository Repository
	logger     *slog.Logger
	now        func() time.Time
}

var (
	_ module.Workspaces      = (*Service)(nil)
	_ authz.MembershipReader = (*Service)(nil)
)

// NewService constructs a new workspace [Service].
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		logger:     logger,
		now:        time.Now,
	}
}

// # Membership

/*
Role resolves the account's role in a workspace for the authorizer.

Returns:
  - authz.Role: The stored role
  - error: authz.ErrNoMembership when the account is not a member
*/
func (service *Service) Role(ctx context.Context, workspaceID, accountID string) (authz.Role, error) {
	role, err := service.repository.FindRole(ctx, workspaceID, accountID)
	if errors.Is(err, ErrNotFound) {
		return "", authz.ErrNoMembership
	}
	if err != nil {
		return "", err
	}
	return authz.Role(role), nil
}

// # Workspace Queries

// ListForAccount returns one page of the account's workspaces.
func (service *Service) ListForAccount(ctx context.Context, accountID string, page pagination.Params) ([]*module.Workspace, int, error) {
	return service.repository.ListForAccount(ctx, accountID, page.Limit, page.Offset())
}

/*
Get retrieves a workspace by id.

Returns:
  - *module.Workspace: Hydrated entity
  - error: apperr NotFound if missing
*/
func (service *Service) Get(ctx context.Context, workspaceID string) (*module.Workspace, error) {
	workspace, err := service.repository.FindByID(ctx, workspaceID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Workspace")
	}
	return workspace, err
}

// Members returns one page of the workspace's members.
func (service *Service) Members(ctx context.Context, workspaceID string, page pagination.Params) ([]*module.Member, int, error) {
	return service.repository.ListMembers(ctx, workspaceID, page.Limit, page.Offset())
}

// Billing lists the subscriptions the account is responsible for.
func (service *Service) Billing(ctx context.Context, accountID string) ([]*module.BillingAccount, error) {
	accounts, err := service.repository.ListBilling(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*module.BillingAccount{}
	}
	return accounts, nil
}

// # Organization Profile

// Organization returns the profile of a provider workspace; other kinds have none.
func (service *Service) Organization(ctx context.Context, workspaceID string) (*module.Organization, error) {
	organization, err := service.repository.FindOrganization(ctx, workspaceID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Organization")
	}
	return organization, err
}

/*
UpdateOrganization validates and applies a partial profile update.

Parameters:
  - ctx: context.Context
  - workspaceID: string
  - patch: module.OrganizationPatch (nil fields are left unchanged)

Returns:
  - *module.Organization: The stored profile
  - error: Validation errors, apperr NotFound, or persistence failures
*/
func (service *Service) UpdateOrganization(ctx context.Context, workspaceID string, patch module.OrganizationPatch) (*module.Organization, error) {
	if patch.Empty() {
		return nil, apperr.ValidationError("Nothing to update")
	}

	patch = normalizePatch(patch)
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	organization, err := service.repository.UpdateOrganization(ctx, workspaceID, patch)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Organization")
	}
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "organization_updated", slog.String("workspace_id", workspaceID))
	return organization, nil
}

func normalizePatch(patch module.OrganizationPatch) module.OrganizationPatch {
	patch.LegalName = pointer.Map(patch.LegalName, strings.TrimSpace)
	patch.Website = pointer.Map(patch.Website, strings.TrimSpace)
	patch.ContactEmail = pointer.Map(patch.ContactEmail, strings.TrimSpace)
	patch.Description = pointer.Map(patch.Description, strings.TrimSpace)
	patch.Country = pointer.Map(patch.Country, func(country string) string {
		return strings.ToUpper(strings.TrimSpace(country))
	})
	return patch
}

func validatePatch(patch module.OrganizationPatch) error {
	validator := &validate.Validator{}

	if patch.LegalName != nil {
		validator.Required(FieldLegalName, *patch.LegalName).MaxLen(FieldLegalName, *patch.LegalName, maxLegalNameLength)
	}
	if patch.Website != nil && *patch.Website != "" {
		validator.MaxLen(FieldWebsite, *patch.Website, maxWebsiteLength).
			Custom(FieldWebsite, !validWebsite(*patch.Website), "Must be an http or https URL")
	}
	if patch.ContactEmail != nil && *patch.ContactEmail != "" {
		validator.Email(FieldContactEmail, *patch.ContactEmail)
	}
	if patch.Country != nil && *patch.Country != "" {
		validator.Custom(FieldCountry, !validCountry(*patch.Country), "Must be an ISO 3166-1 alpha-2 country code")
	}
	if patch.Description != nil {
		validator.MaxLen(FieldDescription, *patch.Description, maxDescriptionLength)
	}

	return validator.Err()
}

func validWebsite(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// validCountry accepts two-letter region codes that x/text knows as countries.
func validCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	region, err := language.ParseRegion(code)
	return err == nil && region.IsCountry()
}

// # Lifecycle

/*
Create makes a workspace owned by the account.

Description: The slug is derived from the name. When it is taken, numbered
suffixes are tried before reporting a conflict.

Parameters:
  - ctx: context.Context
  - accountID: string (Becomes the owner)
  - input: module.NewWorkspace

Returns:
  - *module.Workspace: The created workspace with Role owner
  - error: Validation errors, apperr Conflict, or persistence failures
*/
func (service *Service) Create(ctx context.Context, accountID string, input module.NewWorkspace) (*module.Workspace, error) {
	input.Name = strings.TrimSpace(input.Name)

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, maxNameLength).
		OneOf(FieldKind, string(input.Kind), string(module.WorkspaceSchool), string(module.WorkspaceFamily), string(module.WorkspaceProvider))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	base := slug.From(input.Name)
	if base == "" {
		base = "workspace"
	}

	workspace := &module.Workspace{
		ID:          uuid.New(),
		Name:        input.Name,
		Kind:        input.Kind,
		Role:        string(authz.RoleOwner),
		MemberCount: 1,
		CreatedAt:   service.now().UTC(),
	}

	for attempt := 1; attempt <= slugAttempts; attempt++ {
		workspace.Slug = base
		if attempt > 1 {
			workspace.Slug = fmt.Sprintf("%s-%d", base, attempt)
		}

		err := service.repository.Create(ctx, workspace, accountID)
		if err == nil {
			service.logger.InfoContext(ctx, "workspace_created",
				slog.String("workspace_id", workspace.ID),
				slog.String("slug", workspace.Slug),
				slog.String("kind", string(workspace.Kind)),
			)
			return workspace, nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return nil, err
		}
	}

	return nil, apperr.Conflict("A workspace with a similar name already exists")
}
