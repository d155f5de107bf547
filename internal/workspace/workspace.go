// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package workspace implements the tenant module: workspaces, their members and
the organization profile of provider workspaces.

# Core Responsibility

  - Tenancy: Lists and resolves the workspaces an account belongs to.
  - Membership: Answers the role lookups the authorizer makes on every
    workspace-scoped request.
  - Organization: Reads and patches the public profile of provider workspaces.

Authorization happens in the pipeline before any of this runs.
*/
package workspace

import "errors"

var (
	// ErrNotFound is returned when no workspace, member or profile matches.
	ErrNotFound = errors.New("workspace: not found")

	// ErrSlugTaken is returned when another workspace already owns the slug.
	ErrSlugTaken = errors.New("workspace: slug taken")
)

// # Field Identifiers

const (
	FieldName         = "name"
	FieldKind         = "kind"
	FieldLegalName    = "legalName"
	FieldWebsite      = "website"
	FieldContactEmail = "contactEmail"
	FieldCountry      = "country"
	FieldDescription  = "description"
)

// Limits on free-text fields.
const (
	maxNameLength        = 120
	maxLegalNameLength   = 200
	maxDescriptionLength = 2000
	maxWebsiteLength     = 255
)

// slugAttempts bounds how many suffixed slugs Create tries before giving up.
const slugAttempts = 5
