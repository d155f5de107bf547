// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workspace_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/authz"
	"github.com/taibuivan/lumina/internal/module"
	"github.com/taibuivan/lumina/internal/platform/apperr"
	"github.com/taibuivan/lumina/internal/workspace"
	"github.com/taibuivan/lumina/internal/workspace/workspacefake"
	"github.com/taibuivan/lumina/pkg/pagination"
	"github.com/taibuivan/lumina/pkg/pointer"
)

var created = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*workspace.Service, *workspacefake.Repository) {
	t.Helper()

	repository := workspacefake.New()
	repository.Seed(module.Workspace{ID: "ws_school", Slug: "hanoi-school", Name: "Hanoi School", Kind: module.WorkspaceSchool, CreatedAt: created}, "school", 50)
	repository.Seed(module.Workspace{ID: "ws_provider", Slug: "acme-learning", Name: "Acme Learning", Kind: module.WorkspaceProvider, CreatedAt: created.Add(time.Hour)}, "pro", 5)
	repository.AddMember("ws_school", module.Member{AccountID: "acc-owner", Role: "owner"})
	repository.AddMember("ws_school", module.Member{AccountID: "acc-student", Role: "member"})
	repository.AddMember("ws_provider", module.Member{AccountID: "acc-owner", Role: "admin"})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return workspace.NewService(repository, logger), repository
}

func TestRole(t *testing.T) {
	service, repository := newService(t)
	ctx := context.Background()

	role, err := service.Role(ctx, "ws_school", "acc-student")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleMember, role)

	_, err = service.Role(ctx, "ws_school", "acc-stranger")
	assert.ErrorIs(t, err, authz.ErrNoMembership)

	_, err = service.Role(ctx, "ws_missing", "acc-student")
	assert.ErrorIs(t, err, authz.ErrNoMembership)

	repository.SetDown(true)
	_, err = service.Role(ctx, "ws_school", "acc-student")
	assert.ErrorIs(t, err, workspacefake.ErrDown)
	assert.NotErrorIs(t, err, authz.ErrNoMembership)
}

func TestListForAccount(t *testing.T) {
	service, _ := newService(t)

	workspaces, total, err := service.ListForAccount(context.Background(), "acc-owner", pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, workspaces, 2)
	assert.Equal(t, "ws_provider", workspaces[0].ID, "newest first")
	assert.Equal(t, "admin", workspaces[0].Role)
	assert.Equal(t, "owner", workspaces[1].Role)
	assert.Equal(t, 2, workspaces[1].MemberCount)

	workspaces, total, err = service.ListForAccount(context.Background(), "acc-owner", pagination.Params{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "ws_school", workspaces[0].ID)
}

func TestGet(t *testing.T) {
	service, _ := newService(t)

	ws, err := service.Get(context.Background(), "ws_school")
	require.NoError(t, err)
	assert.Equal(t, "hanoi-school", ws.Slug)

	_, err = service.Get(context.Background(), "ws_missing")
	require.Error(t, err)
	assert.Equal(t, "Workspace not found", apperr.As(err).Message)
}

func TestMembers(t *testing.T) {
	service, _ := newService(t)

	members, total, err := service.Members(context.Background(), "ws_school", pagination.Params{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, members, 1)
	assert.Equal(t, "acc-owner", members[0].AccountID)
}

func TestBilling(t *testing.T) {
	service, _ := newService(t)

	accounts, err := service.Billing(context.Background(), "acc-owner")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Acme Learning", accounts[0].WorkspaceName)
	assert.Equal(t, "pro", accounts[0].Plan)
	assert.Equal(t, 1, accounts[0].SeatsUsed)

	accounts, err = service.Billing(context.Background(), "acc-student")
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestOrganization(t *testing.T) {
	service, _ := newService(t)

	organization, err := service.Organization(context.Background(), "ws_provider")
	require.NoError(t, err)
	assert.Equal(t, "Acme Learning", organization.LegalName)

	_, err = service.Organization(context.Background(), "ws_school")
	assert.True(t, apperr.HasCode(err, apperr.CodeRouteNotFound), "only provider workspaces have a profile")
}

func TestUpdateOrganization(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	organization, err := service.UpdateOrganization(ctx, "ws_provider", module.OrganizationPatch{
		LegalName: pointer.To("  Acme Learning JSC "),
		Website:   pointer.To("https://acme.example"),
		Country:   pointer.To("vn"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Learning JSC", organization.LegalName)
	assert.Equal(t, "https://acme.example", organization.Website)
	assert.Equal(t, "VN", organization.Country)

	organization, err = service.UpdateOrganization(ctx, "ws_provider", module.OrganizationPatch{Description: pointer.To("Maths courses")})
	require.NoError(t, err)
	assert.Equal(t, "Acme Learning JSC", organization.LegalName, "unset fields keep their value")
	assert.Equal(t, "Maths courses", organization.Description)

	_, err = service.UpdateOrganization(ctx, "ws_school", module.OrganizationPatch{LegalName: pointer.To("School")})
	assert.True(t, apperr.HasCode(err, apperr.CodeRouteNotFound))
}

func TestUpdateOrganizationValidation(t *testing.T) {
	service, _ := newService(t)

	tests := []struct {
		name  string
		patch module.OrganizationPatch
		field string
	}{
		{"empty patch", module.OrganizationPatch{}, ""},
		{"blank legal name", module.OrganizationPatch{LegalName: pointer.To("   ")}, workspace.FieldLegalName},
		{"ftp website", module.OrganizationPatch{Website: pointer.To("ftp://acme.example")}, workspace.FieldWebsite},
		{"bad email", module.OrganizationPatch{ContactEmail: pointer.To("not-an-email")}, workspace.FieldContactEmail},
		{"unknown country", module.OrganizationPatch{Country: pointer.To("Vietnam")}, workspace.FieldCountry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdateOrganization(context.Background(), "ws_provider", tt.patch)
			require.Error(t, err)
			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperr.CodeValidation, appErr.Code)
			if tt.field != "" {
				require.Len(t, appErr.Details, 1)
				assert.Equal(t, tt.field, appErr.Details[0].Field)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	service, repository := newService(t)
	ctx := context.Background()

	ws, err := service.Create(ctx, "acc-new", module.NewWorkspace{Name: "Trường Đại học Hà Nội", Kind: module.WorkspaceSchool})
	require.NoError(t, err)
	assert.Equal(t, "truong-dai-hoc-ha-noi", ws.Slug)
	assert.Equal(t, "owner", ws.Role)

	role, err := service.Role(ctx, ws.ID, "acc-new")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOwner, role)

	again, err := service.Create(ctx, "acc-other", module.NewWorkspace{Name: "Truong Dai Hoc Ha Noi", Kind: module.WorkspaceSchool})
	require.NoError(t, err)
	assert.Equal(t, "truong-dai-hoc-ha-noi-2", again.Slug)

	assert.Contains(t, repository.Slugs(), "truong-dai-hoc-ha-noi-2")
}

func TestCreateConflictAfterAttempts(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	for range 5 {
		_, err := service.Create(ctx, "acc-1", module.NewWorkspace{Name: "Family", Kind: module.WorkspaceFamily})
		require.NoError(t, err)
	}

	_, err := service.Create(ctx, "acc-1", module.NewWorkspace{Name: "Family", Kind: module.WorkspaceFamily})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

func TestCreateValidation(t *testing.T) {
	service, _ := newService(t)

	_, err := service.Create(context.Background(), "acc-1", module.NewWorkspace{Name: "", Kind: "castle"})
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Len(t, appErr.Details, 2)

	_, err = service.Create(context.Background(), "acc-1", module.NewWorkspace{Name: "Ops", Kind: module.WorkspaceInternal})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "internal workspaces are not self-service")

	ws, err := service.Create(context.Background(), "acc-1", module.NewWorkspace{Name: "!!!", Kind: module.WorkspaceFamily})
	require.NoError(t, err)
	assert.Equal(t, "workspace", ws.Slug)
}
