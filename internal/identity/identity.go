// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity owns who a caller is: the identity record (email, phone,
verification flags, password), the account that acts on the platform and the
OAuth links that map provider identities onto accounts.

An identity and its account are created together and never exist apart. Emails
are stored lower-cased and are unique across identities.
*/
package identity

import (
	"errors"
	"strings"
	"time"
)

// Kind is the platform role of an account, independent of any workspace.
type Kind string

const (
	KindStudent  Kind = "student"
	KindParent   Kind = "parent"
	KindProvider Kind = "provider"
	KindStaff    Kind = "staff"
)

// Valid reports whether k is a known account kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStudent, KindParent, KindProvider, KindStaff:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no account or link matches.
	ErrNotFound = errors.New("identity: not found")

	// ErrEmailTaken is returned when another identity already owns the email.
	ErrEmailTaken = errors.New("identity: email taken")

	// ErrLinkTaken is returned when the provider identity is already linked.
	ErrLinkTaken = errors.New("identity: link taken")

	// ErrLinkConflict is returned when a provider identity is linked to a different account.
	ErrLinkConflict = errors.New("identity: provider identity linked to another account")
)

// Account is the joined view of an account and its identity.
type Account struct {
	ID               string    `json:"id"`
	IdentityID       string    `json:"-"`
	Kind             Kind      `json:"kind"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	EmailVerified    bool      `json:"emailVerified"`
	PhoneVerified    bool      `json:"phoneVerified"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	DisplayName      string    `json:"displayName"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`
	PasswordHash     string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewAccount is the input for creating an identity together with its account.
type NewAccount struct {
	Email         string
	EmailVerified bool
	Phone         string
	PasswordHash  string
	DisplayName   string
	AvatarURL     string
	Kind          Kind
}

// Link maps a provider identity onto an account.
type Link struct {
	Provider    string
	ProviderID  string
	AccountID   string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Field identifiers used in validation errors.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldDisplayName = "displayName"
	FieldPhone       = "phone"
	FieldKind        = "kind"
	FieldToken       = "token"
)
