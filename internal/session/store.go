// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// Repository defines the data access contract for sessions.
type Repository interface {

	/*
		Insert persists a brand-new session row.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Insert(context context.Context, session *Session) error

	/*
		FindByID returns the session row with the given id, revoked or not.

		Returns:
		  - *Session: Hydrated entity
		  - error: ErrNotFound or database failures
	*/
	FindByID(context context.Context, id string) (*Session, error)

	// UpdateExpiry moves the expiry of an active session.
	UpdateExpiry(context context.Context, id string, expiresAt time.Time) error

	// RevokeByID marks one session revoked. Revoking twice is not an error.
	RevokeByID(context context.Context, id string, at time.Time) error

	// RevokeByGroup marks every active session of a device family revoked.
	RevokeByGroup(context context.Context, groupID string, at time.Time) (int64, error)

	// RevokeByAccount marks every active session of an account revoked.
	RevokeByAccount(context context.Context, accountID string, at time.Time) (int64, error)

	// ListActive returns unrevoked, unexpired sessions of an account, newest first.
	ListActive(context context.Context, accountID string, now time.Time) ([]*Session, error)

	// DeleteExpired removes rows that expired or were revoked before cutoff.
	DeleteExpired(context context.Context, cutoff time.Time) (int64, error)
}
