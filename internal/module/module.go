// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package module declares the contracts between the request pipeline and the
business modules it dispatches to.

Handlers receive these interfaces at construction. The pipeline has already
authenticated the caller and authorized the route by the time any method here
runs, so implementations only enforce business rules of their own.
*/
package module

import (
	"context"
	"time"

	"github.com/taibuivan/lumina/pkg/pagination"
)

// # Workspaces

// WorkspaceKind tells what sort of tenant a workspace is.
type WorkspaceKind string

const (
	WorkspaceSchool   WorkspaceKind = "school"
	WorkspaceFamily   WorkspaceKind = "family"
	WorkspaceProvider WorkspaceKind = "provider"
	WorkspaceInternal WorkspaceKind = "internal"
)

// Valid reports whether k is a known workspace kind.
func (k WorkspaceKind) Valid() bool {
	switch k {
	case WorkspaceSchool, WorkspaceFamily, WorkspaceProvider, WorkspaceInternal:
		return true
	}
	return false
}

// Workspace is a tenant as seen by one of its members.
type Workspace struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Name        string        `json:"name"`
	Kind        WorkspaceKind `json:"kind"`
	Role        string        `json:"role,omitempty"` // Caller's role; empty outside member views
	MemberCount int           `json:"memberCount"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Member is one account's affiliation with a workspace.
type Member struct {
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Organization is the public profile of a provider workspace.
type Organization struct {
	WorkspaceID  string    `json:"workspaceId"`
	LegalName    string    `json:"legalName"`
	Website      string    `json:"website,omitempty"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	Country      string    `json:"country,omitempty"`
	Description  string    `json:"description,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OrganizationPatch carries the fields a PATCH request set. Nil means unchanged.
type OrganizationPatch struct {
	LegalName    *string `json:"legalName"`
	Website      *string `json:"website"`
	ContactEmail *string `json:"contactEmail"`
	Country      *string `json:"country"`
	Description  *string `json:"description"`
}

// Empty reports whether the patch changes nothing.
func (p OrganizationPatch) Empty() bool {
	return p.LegalName == nil && p.Website == nil && p.ContactEmail == nil &&
		p.Country == nil && p.Description == nil
}

// BillingAccount is the subscription of a workspace the caller pays for.
type BillingAccount struct {
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
	Plan          string `json:"plan"`
	Seats         int    `json:"seats"`
	SeatsUsed     int    `json:"seatsUsed"`
}

// NewWorkspace is the input for creating a workspace.
type NewWorkspace struct {
	Name string        `json:"name"`
	Kind WorkspaceKind `json:"kind"`
}

/*
Workspaces is the tenant module.

Every list method returns the page of items plus the total row count.
*/
type Workspaces interface {
	// ListForAccount returns the workspaces the account belongs to, with its role in each.
	ListForAccount(ctx context.Context, accountID string, page pagination.Params) ([]*Workspace, int, error)

	// Get returns one workspace; apperr NotFound if it does not exist.
	Get(ctx context.Context, workspaceID string) (*Workspace, error)

	// Members lists the members of a workspace.
	Members(ctx context.Context, workspaceID string, page pagination.Params) ([]*Member, int, error)

	// Organization returns the profile of a provider workspace.
	Organization(ctx context.Context, workspaceID string) (*Organization, error)

	// UpdateOrganization applies a validated patch to a provider workspace's profile.
	UpdateOrganization(ctx context.Context, workspaceID string, patch OrganizationPatch) (*Organization, error)

	// Billing lists the subscriptions of workspaces the account owns or administers.
	Billing(ctx context.Context, accountID string) ([]*BillingAccount, error)

	// Create makes a workspace with the account as its owner.
	Create(ctx context.Context, accountID string, input NewWorkspace) (*Workspace, error)
}

// # Staff

// Overview is the platform summary shown on the staff console.
type Overview struct {
	Accounts       int            `json:"accounts"`
	AccountsByKind map[string]int `json:"accountsByKind"`
	Workspaces     int            `json:"workspaces"`
	ActiveSessions int            `json:"activeSessions"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// Staff is the internal console module.
type Staff interface {
	Overview(ctx context.Context) (*Overview, error)
}
