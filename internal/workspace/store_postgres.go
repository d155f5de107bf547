// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/module"
	"github.com/taibuivan/lumina/internal/platform/dberr"
)

// constraintSlug is the unique index on workspace.workspace(slug).
const constraintSlug = "workspace_slug_key"

// PostgresRepository implements [Repository] on the workspace schema.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed workspace store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// memberCount is a correlated subquery over the workspace alias w.
const memberCount = `(SELECT count(*) FROM workspace.member c WHERE c.workspace_id = w.id)`

// # Workspace Retrieval

/*
ListForAccount returns the workspaces the account is a member of.

Description: Uses COUNT(*) OVER() for total metadata, newest workspace first.

Parameters:
  - context: context.Context
  - accountID: string
  - limit: int
  - offset: int

Returns:
  - []*module.Workspace: Slice of workspaces with the member's role
  - int: Total record count
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) ListForAccount(context context.Context, accountID string, limit, offset int) ([]*module.Workspace, int, error) {
	query := `
		SELECT w.id, w.slug, w.name, w.kind, m.role, ` + memberCount + `, w.created_at,
		       COUNT(*) OVER() AS total
		FROM workspace.workspace w
		JOIN workspace.member m ON m.workspace_id = w.id
		WHERE m.account_id = $1
		ORDER BY w.created_at DESC, w.id
		LIMIT $2 OFFSET $3`

	rows, err := repository.db.Query(context, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_workspace_list_failed: %w", err)
	}
	defer rows.Close()

	var workspaces []*module.Workspace
	var total int
	for rows.Next() {
		workspace := &module.Workspace{}
		if err := rows.Scan(
			&workspace.ID, &workspace.Slug, &workspace.Name, &workspace.Kind, &workspace.Role,
			&workspace.MemberCount, &workspace.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_workspace_scan_failed: %w", err)
		}
		workspaces = append(workspaces, workspace)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_workspace_list_failed: %w", err)
	}

	return workspaces, total, nil
}

/*
FindByID retrieves a single workspace by its primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *module.Workspace: Hydrated entity without a role
  - error: ErrNotFound or database failures
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*module.Workspace, error) {
	query := `
		SELECT w.id, w.slug, w.name, w.kind, ` + memberCount + `, w.created_at
		FROM workspace.workspace w
		WHERE w.id = $1`

	workspace := &module.Workspace{}
	err := repository.db.QueryRow(context, query, id).Scan(
		&workspace.ID, &workspace.Slug, &workspace.Name, &workspace.Kind,
		&workspace.MemberCount, &workspace.CreatedAt,
	)
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_workspace_find_failed: %w", err)
	}
	return workspace, nil
}

// # Membership

// ListMembers returns one page of members joined with their identities, owners first.
func (repository *PostgresRepository) ListMembers(context context.Context, workspaceID string, limit, offset int) ([]*module.Member, int, error) {
	const query = `
		SELECT m.account_id, i.display_name, i.email, m.role, m.joined_at,
		       COUNT(*) OVER() AS total
		FROM workspace.member m
		JOIN auth.account a ON a.id = m.account_id
		JOIN auth.identity i ON i.id = a.identity_id
		WHERE m.workspace_id = $1
		ORDER BY CASE m.role WHEN 'owner' THEN 0 WHEN 'admin' THEN 1 ELSE 2 END, m.joined_at, m.account_id
		LIMIT $2 OFFSET $3`

	rows, err := repository.db.Query(context, query, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_member_list_failed: %w", err)
	}
	defer rows.Close()

	var members []*module.Member
	var total int
	for rows.Next() {
		member := &module.Member{}
		if err := rows.Scan(&member.AccountID, &member.DisplayName, &member.Email, &member.Role, &member.JoinedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("postgres_member_scan_failed: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_member_list_failed: %w", err)
	}

	return members, total, nil
}

// FindRole returns the role of one member; this is the authorizer's hot path.
func (repository *PostgresRepository) FindRole(context context.Context, workspaceID, accountID string) (string, error) {
	const query = `SELECT role FROM workspace.member WHERE workspace_id = $1 AND account_id = $2`

	var role string
	err := repository.db.QueryRow(context, query, workspaceID, accountID).Scan(&role)
	if dberr.IsNotFound(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres_member_role_failed: %w", err)
	}
	return role, nil
}

// # Organization Profile

const organizationColumns = `
	id, COALESCE(legal_name, name), COALESCE(website, ''), COALESCE(contact_email, ''),
	COALESCE(country, ''), COALESCE(description, ''), COALESCE(org_updated_at, created_at)`

// FindOrganization returns the profile columns of a provider workspace.
func (repository *PostgresRepository) FindOrganization(context context.Context, workspaceID string) (*module.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM workspace.workspace WHERE id = $1 AND kind = 'provider'`

	organization, err := scanOrganization(repository.db.QueryRow(context, query, workspaceID))
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_organization_find_failed: %w", err)
	}
	return organization, nil
}

/*
UpdateOrganization writes the set fields of the patch.

Description: Nil patch fields bind as NULL and COALESCE keeps the stored value,
so a single statement covers every combination of fields.
*/
func (repository *PostgresRepository) UpdateOrganization(context context.Context, workspaceID string, patch module.OrganizationPatch) (*module.Organization, error) {
	query := `
		UPDATE workspace.workspace SET
			legal_name     = COALESCE($2, legal_name),
			website        = COALESCE($3, website),
			contact_email  = COALESCE($4, contact_email),
			country        = COALESCE($5, country),
			description    = COALESCE($6, description),
			org_updated_at = $7,
			updated_at     = $7
		WHERE id = $1 AND kind = 'provider'
		RETURNING ` + organizationColumns

	row := repository.db.QueryRow(context, query, workspaceID,
		patch.LegalName, patch.Website, patch.ContactEmail, patch.Country, patch.Description,
		time.Now().UTC(),
	)
	organization, err := scanOrganization(row)
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_organization_update_failed: %w", err)
	}
	return organization, nil
}

// # Billing

// ListBilling returns plan and seat usage of the workspaces the account pays for.
func (repository *PostgresRepository) ListBilling(context context.Context, accountID string) ([]*module.BillingAccount, error) {
	query := `
		SELECT w.id, w.name, w.plan, w.seats, ` + memberCount + `
		FROM workspace.workspace w
		JOIN workspace.member m ON m.workspace_id = w.id
		WHERE m.account_id = $1 AND m.role IN ($2, $3)
		ORDER BY w.name, w.id`

	rows, err := repository.db.Query(context, query, accountID, string(authz.RoleOwner), string(authz.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("postgres_billing_list_failed: %w", err)
	}
	defer rows.Close()

	var accounts []*module.BillingAccount
	for rows.Next() {
		account := &module.BillingAccount{}
		if err := rows.Scan(&account.WorkspaceID, &account.WorkspaceName, &account.Plan, &account.Seats, &account.SeatsUsed); err != nil {
			return nil, fmt.Errorf("postgres_billing_scan_failed: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_billing_list_failed: %w", err)
	}
	return accounts, nil
}

// # Lifecycle

/*
Create inserts a workspace and its owner membership atomically.

Parameters:
  - context: context.Context
  - workspace: *module.Workspace (ID, Slug, Name, Kind and CreatedAt set)
  - ownerID: string

Returns:
  - error: ErrSlugTaken or persistence failures
*/
func (repository *PostgresRepository) Create(context context.Context, workspace *module.Workspace, ownerID string) error {
	err := pgx.BeginFunc(context, repository.db, func(tx pgx.Tx) error {
		const insertWorkspace = `
			INSERT INTO workspace.workspace (id, slug, name, kind, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)`

		if _, err := tx.Exec(context, insertWorkspace,
			workspace.ID, workspace.Slug, workspace.Name, workspace.Kind, workspace.CreatedAt,
		); err != nil {
			return err
		}

		const insertOwner = `
			INSERT INTO workspace.member (workspace_id, account_id, role, joined_at)
			VALUES ($1, $2, $3, $4)`

		_, err := tx.Exec(context, insertOwner, workspace.ID, ownerID, string(authz.RoleOwner), workspace.CreatedAt)
		return err
	})

	switch {
	case err == nil:
		return nil
	case dberr.IsUniqueViolation(err, constraintSlug):
		return ErrSlugTaken
	default:
		return fmt.Errorf("postgres_workspace_create_failed: %w", err)
	}
}

func scanOrganization(row pgx.Row) (*module.Organization, error) {
	organization := &module.Organization{}
	err := row.Scan(
		&organization.WorkspaceID,
		&organization.LegalName,
		&organization.Website,
		&organization.ContactEmail,
		&organization.Country,
		&organization.Description,
		&organization.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return organization, nil
}
