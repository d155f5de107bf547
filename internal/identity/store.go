// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"time"
)

// Repository defines the data access contract for accounts and OAuth links.
type Repository interface {

	/*
		FindAccountByID returns the account with the given id.

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrNotFound or database failures
	*/
	FindAccountByID(context context.Context, id string) (*Account, error)

	// FindAccountByEmail looks up an account by normalized email.
	FindAccountByEmail(context context.Context, email string) (*Account, error)

	// FindLink returns the link for a provider identity.
	FindLink(context context.Context, provider, providerID string) (*Link, error)

	/*
		CreateAccount inserts identity and account, plus link when non-nil,
		in a single transaction.

		Parameters:
		  - context: context.Context
		  - input: NewAccount
		  - link: *Link (optional; AccountID is filled in)

		Returns:
		  - *Account: The created account
		  - error: ErrEmailTaken, ErrLinkTaken or database failures
	*/
	CreateAccount(context context.Context, input NewAccount, link *Link) (*Account, error)

	/*
		CreateLink inserts a link if the provider identity is not linked yet and
		returns the stored link either way. The caller compares AccountID to
		detect a link owned by someone else.
	*/
	CreateLink(context context.Context, link *Link) (*Link, error)

	// MarkEmailVerified sets the email_verified flag of an account's identity.
	MarkEmailVerified(context context.Context, accountID string) error
}

// TokenStore keeps single-use email verification tokens.
type TokenStore interface {
	// Save stores accountID under the token hash for ttl.
	Save(context context.Context, tokenHash, accountID string, ttl time.Duration) error

	// Consume atomically reads and deletes the token; ErrNotFound if absent or expired.
	Consume(context context.Context, tokenHash string) (string, error)
}
