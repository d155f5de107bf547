// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workspace

import (
	"context"

	"github.com/taibuivan/lumina/internal/module"
)

// # Workspace Data Access

// Repository defines the data access contract for workspaces and memberships.
type Repository interface {

	/*
		ListForAccount returns one page of the account's workspaces and the total count.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - limit: int
		  - offset: int

		Returns:
		  - []*module.Workspace: With Role set to the account's role
		  - int: Total record count
		  - error: Database retrieval failures
	*/
	ListForAccount(context context.Context, accountID string, limit, offset int) ([]*module.Workspace, int, error)

	// FindByID returns a workspace or ErrNotFound.
	FindByID(context context.Context, id string) (*module.Workspace, error)

	// ListMembers returns one page of members and the total count.
	ListMembers(context context.Context, workspaceID string, limit, offset int) ([]*module.Member, int, error)

	// FindRole returns the member's role or ErrNotFound.
	FindRole(context context.Context, workspaceID, accountID string) (string, error)

	// FindOrganization returns the profile of a provider workspace or ErrNotFound.
	FindOrganization(context context.Context, workspaceID string) (*module.Organization, error)

	/*
		UpdateOrganization writes the non-nil fields of patch.

		Returns:
		  - *module.Organization: The stored profile after the update
		  - error: ErrNotFound if the workspace is missing or not a provider
	*/
	UpdateOrganization(context context.Context, workspaceID string, patch module.OrganizationPatch) (*module.Organization, error)

	// ListBilling returns the subscriptions of workspaces the account owns or administers.
	ListBilling(context context.Context, accountID string) ([]*module.BillingAccount, error)

	/*
		Create inserts the workspace and its owner membership in one transaction.

		Returns:
		  - error: ErrSlugTaken or database failures
	*/
	Create(context context.Context, workspace *module.Workspace, ownerID string) error
}
