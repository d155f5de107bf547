// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authz

import (
	"slices"

	"github.com/taibuivan/lumina/internal/identity"
)

// # Workspace Roles

// Role is what a member may do inside one workspace.
type Role string

const (
	// Created the workspace; full control including billing and deletion
	RoleOwner Role = "owner"

	// Manages members and settings
	RoleAdmin Role = "admin"

	// Edits content and the organization profile
	RoleEditor Role = "editor"

	// Default role for students and teachers in a school workspace
	RoleMember Role = "member"

	// Read-only access
	RoleViewer Role = "viewer"

	// Parent or guardian following a student
	RoleGuardian Role = "guardian"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// # Permissions

// Permission names an action a route may demand.
type Permission string

const (
	PermWorkspaceRead      Permission = "workspace.read"
	PermWorkspaceManage    Permission = "workspace.manage"
	PermMembersRead        Permission = "members.read"
	PermMembersManage      Permission = "members.manage"
	PermContentEdit        Permission = "content.edit"
	PermOrganizationRead   Permission = "organization.read"
	PermOrganizationUpdate Permission = "organization.update"
	PermBillingRead        Permission = "billing.read"
	PermStaffConsole       Permission = "staff.console"
)

var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermWorkspaceRead, PermWorkspaceManage,
		PermMembersRead, PermMembersManage,
		PermContentEdit,
		PermOrganizationRead, PermOrganizationUpdate,
		PermBillingRead,
	},
	RoleAdmin: {
		PermWorkspaceRead, PermWorkspaceManage,
		PermMembersRead, PermMembersManage,
		PermContentEdit,
		PermOrganizationRead, PermOrganizationUpdate,
	},
	RoleEditor: {
		PermWorkspaceRead,
		PermMembersRead,
		PermContentEdit,
		PermOrganizationRead, PermOrganizationUpdate,
	},
	RoleMember:   {PermWorkspaceRead, PermMembersRead, PermOrganizationRead},
	RoleViewer:   {PermWorkspaceRead, PermOrganizationRead},
	RoleGuardian: {PermWorkspaceRead},
}

// Platform permissions follow the account kind and apply outside any workspace.
var kindPermissions = map[identity.Kind][]Permission{
	identity.KindStaff:    {PermStaffConsole, PermBillingRead},
	identity.KindProvider: {PermBillingRead},
	identity.KindParent:   {PermBillingRead},
	identity.KindStudent:  nil,
}

// RolePermissions returns the permissions granted by a workspace role.
func RolePermissions(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}

// KindPermissions returns the platform permissions of an account kind.
func KindPermissions(kind identity.Kind) []Permission {
	return slices.Clone(kindPermissions[kind])
}

// Known reports whether name is in the permission catalogue.
func Known(name string) bool {
	permission := Permission(name)
	for _, granted := range rolePermissions {
		if slices.Contains(granted, permission) {
			return true
		}
	}
	for _, granted := range kindPermissions {
		if slices.Contains(granted, permission) {
			return true
		}
	}
	return false
}
