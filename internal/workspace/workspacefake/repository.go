// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package workspacefake provides an in-memory workspace repository for tests.
package workspacefake

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/lumina/internal/module"
	"github.com/taibuivan/lumina/internal/workspace"
)

var _ workspace.Repository = (*Repository)(nil)

// ErrDown is returned while the fake is marked down.
var ErrDown = errors.New("workspacefake: store down")

type record struct {
	workspace    module.Workspace
	plan         string
	seats        int
	organization module.Organization
	members      []module.Member
}

// Repository keeps workspaces and members in memory and enforces slug uniqueness.
type Repository struct {
	lock       sync.Mutex
	workspaces map[string]*record
	down       bool
}

// New creates an empty fake repository.
func New() *Repository {
	return &Repository{workspaces: make(map[string]*record)}
}

// SetDown makes every subsequent call fail with [ErrDown].
func (r *Repository) SetDown(down bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.down = down
}

// Seed stores a workspace with a plan and seat count.
func (r *Repository) Seed(ws module.Workspace, plan string, seats int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.workspaces[ws.ID] = &record{
		workspace:    ws,
		plan:         plan,
		seats:        seats,
		organization: module.Organization{WorkspaceID: ws.ID, LegalName: ws.Name, UpdatedAt: ws.CreatedAt},
	}
}

// AddMember attaches a member to a seeded workspace.
func (r *Repository) AddMember(workspaceID string, member module.Member) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if rec, ok := r.workspaces[workspaceID]; ok {
		rec.members = append(rec.members, member)
	}
}

// Slugs returns every stored slug, sorted.
func (r *Repository) Slugs() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	var slugs []string
	for _, rec := range r.workspaces {
		slugs = append(slugs, rec.workspace.Slug)
	}
	sort.Strings(slugs)
	return slugs
}

func (r *Repository) ListForAccount(_ context.Context, accountID string, limit, offset int) ([]*module.Workspace, int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, 0, ErrDown
	}

	var all []*module.Workspace
	for _, rec := range r.workspaces {
		for _, member := range rec.members {
			if member.AccountID == accountID {
				ws := rec.workspace
				ws.Role = member.Role
				ws.MemberCount = len(rec.members)
				all = append(all, &ws)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return window(all, limit, offset), len(all), nil
}

func (r *Repository) FindByID(_ context.Context, id string) (*module.Workspace, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	rec, ok := r.workspaces[id]
	if !ok {
		return nil, workspace.ErrNotFound
	}
	ws := rec.workspace
	ws.Role = ""
	ws.MemberCount = len(rec.members)
	return &ws, nil
}

func (r *Repository) ListMembers(_ context.Context, workspaceID string, limit, offset int) ([]*module.Member, int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, 0, ErrDown
	}
	rec, ok := r.workspaces[workspaceID]
	if !ok {
		return nil, 0, nil
	}
	members := make([]*module.Member, 0, len(rec.members))
	for i := range rec.members {
		member := rec.members[i]
		members = append(members, &member)
	}
	return window(members, limit, offset), len(members), nil
}

func (r *Repository) FindRole(_ context.Context, workspaceID, accountID string) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return "", ErrDown
	}
	if rec, ok := r.workspaces[workspaceID]; ok {
		for _, member := range rec.members {
			if member.AccountID == accountID {
				return member.Role, nil
			}
		}
	}
	return "", workspace.ErrNotFound
}

func (r *Repository) FindOrganization(_ context.Context, workspaceID string) (*module.Organization, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	rec, ok := r.workspaces[workspaceID]
	if !ok || rec.workspace.Kind != module.WorkspaceProvider {
		return nil, workspace.ErrNotFound
	}
	organization := rec.organization
	return &organization, nil
}

func (r *Repository) UpdateOrganization(_ context.Context, workspaceID string, patch module.OrganizationPatch) (*module.Organization, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	rec, ok := r.workspaces[workspaceID]
	if !ok || rec.workspace.Kind != module.WorkspaceProvider {
		return nil, workspace.ErrNotFound
	}

	apply := func(target *string, value *string) {
		if value != nil {
			*target = *value
		}
	}
	apply(&rec.organization.LegalName, patch.LegalName)
	apply(&rec.organization.Website, patch.Website)
	apply(&rec.organization.ContactEmail, patch.ContactEmail)
	apply(&rec.organization.Country, patch.Country)
	apply(&rec.organization.Description, patch.Description)
	rec.organization.UpdatedAt = time.Now().UTC()

	organization := rec.organization
	return &organization, nil
}

func (r *Repository) ListBilling(_ context.Context, accountID string) ([]*module.BillingAccount, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, ErrDown
	}
	var accounts []*module.BillingAccount
	for _, rec := range r.workspaces {
		for _, member := range rec.members {
			if member.AccountID == accountID && (member.Role == "owner" || member.Role == "admin") {
				accounts = append(accounts, &module.BillingAccount{
					WorkspaceID:   rec.workspace.ID,
					WorkspaceName: rec.workspace.Name,
					Plan:          rec.plan,
					Seats:         rec.seats,
					SeatsUsed:     len(rec.members),
				})
			}
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].WorkspaceName < accounts[j].WorkspaceName })
	return accounts, nil
}

func (r *Repository) Create(_ context.Context, ws *module.Workspace, ownerID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return ErrDown
	}
	for _, rec := range r.workspaces {
		if rec.workspace.Slug == ws.Slug {
			return workspace.ErrSlugTaken
		}
	}
	r.workspaces[ws.ID] = &record{
		workspace:    *ws,
		plan:         "free",
		organization: module.Organization{WorkspaceID: ws.ID, LegalName: ws.Name, UpdatedAt: ws.CreatedAt},
		members:      []module.Member{{AccountID: ownerID, Role: "owner", JoinedAt: ws.CreatedAt}},
	}
	return nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return slices.Clone(items[offset:end])
}
