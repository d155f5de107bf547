// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package staff serves the internal console: platform-wide counters that only
// staff accounts with two-factor enabled may read.
package staff

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/lumina/internal/identity"
	"github.com/taibuivan/lumina/internal/module"
)

// Repository aggregates platform counters.
type Repository interface {
	// AccountsByKind counts accounts per kind.
	AccountsByKind(context context.Context) (map[string]int, error)

	// CountWorkspaces counts every workspace.
	CountWorkspaces(context context.Context) (int, error)

	// CountActiveSessions counts unrevoked sessions expiring after now.
	CountActiveSessions(context context.Context, now time.Time) (int, error)
}

// Service implements [module.Staff].
type Service struct {
	repository Repository
	now        func() time.Time
}

var _ module.Staff = (*Service)(nil)

// NewService constructs a new staff [Service].
func NewService(repository Repository) *Service {
	return &Service{repository: repository, now: time.Now}
}

/*
Overview gathers the console counters.

Every account kind appears in AccountsByKind, zero when there are none.
*/
func (service *Service) Overview(ctx context.Context) (*module.Overview, error) {
	now := service.now().UTC()

	byKind, err := service.repository.AccountsByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("staff_overview_failed: %w", err)
	}

	workspaces, err := service.repository.CountWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("staff_overview_failed: %w", err)
	}

	sessions, err := service.repository.CountActiveSessions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("staff_overview_failed: %w", err)
	}

	overview := &module.Overview{
		AccountsByKind: map[string]int{},
		Workspaces:     workspaces,
		ActiveSessions: sessions,
		GeneratedAt:    now,
	}
	for _, kind := range []identity.Kind{identity.KindStudent, identity.KindParent, identity.KindProvider, identity.KindStaff} {
		overview.AccountsByKind[string(kind)] = byKind[string(kind)]
	}
	for _, count := range byKind {
		overview.Accounts += count
	}
	return overview, nil
}
