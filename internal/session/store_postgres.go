// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/lumina/internal/platform/dberr"
)

// PostgresRepository implements [Repository] on the auth.session table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, account_id, group_id, ip, user_agent, created_at, expires_at, revoked_at`

/*
Insert persists a new session row.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Insert(context context.Context, session *Session) error {
	const query = `
		INSERT INTO auth.session (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.AccountID,
		session.GroupID,
		session.IP,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_insert_failed: %w", err)
	}
	return nil
}

/*
FindByID loads a session row by its opaque id.

Returns:
  - *Session: Hydrated entity, including revoked rows
  - error: ErrNotFound or database errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM auth.session WHERE id = $1`

	session, err := scanSession(repository.pool.QueryRow(context, query, id))
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_session_find_failed: %w", err)
	}
	return session, nil
}

// UpdateExpiry moves the expiry of an unrevoked session.
func (repository *PostgresRepository) UpdateExpiry(context context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE auth.session SET expires_at = $2 WHERE id = $1 AND revoked_at IS NULL`

	if _, err := repository.pool.Exec(context, query, id, expiresAt); err != nil {
		return fmt.Errorf("postgres_session_update_expiry_failed: %w", err)
	}
	return nil
}

// RevokeByID marks a session revoked; already revoked rows keep their first timestamp.
func (repository *PostgresRepository) RevokeByID(context context.Context, id string, at time.Time) error {
	const query = `UPDATE auth.session SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`

	if _, err := repository.pool.Exec(context, query, id, at); err != nil {
		return fmt.Errorf("postgres_session_revoke_failed: %w", err)
	}
	return nil
}

// RevokeByGroup marks every active session in a device family revoked.
func (repository *PostgresRepository) RevokeByGroup(context context.Context, groupID string, at time.Time) (int64, error) {
	const query = `UPDATE auth.session SET revoked_at = $2 WHERE group_id = $1 AND revoked_at IS NULL`

	tag, err := repository.pool.Exec(context, query, groupID, at)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_revoke_group_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RevokeByAccount marks every active session of an account revoked.
func (repository *PostgresRepository) RevokeByAccount(context context.Context, accountID string, at time.Time) (int64, error) {
	const query = `UPDATE auth.session SET revoked_at = $2 WHERE account_id = $1 AND revoked_at IS NULL`

	tag, err := repository.pool.Exec(context, query, accountID, at)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_revoke_account_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
ListActive returns the live sessions of an account for the device list.

Parameters:
  - context: context.Context
  - accountID: string
  - now: time.Time (rows expiring at or before now are excluded)

Returns:
  - []*Session: newest first
  - error: Database errors
*/
func (repository *PostgresRepository) ListActive(context context.Context, accountID string, now time.Time) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM auth.session
		WHERE account_id = $1 AND revoked_at IS NULL AND expires_at >= $2
		ORDER BY created_at DESC`

	rows, err := repository.pool.Query(context, query, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_list_failed: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_session_scan_failed: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_rows_failed: %w", err)
	}
	return sessions, nil
}

// DeleteExpired removes rows that expired or were revoked before cutoff.
func (repository *PostgresRepository) DeleteExpired(context context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM auth.session WHERE expires_at < $1 OR revoked_at < $1`

	tag, err := repository.pool.Exec(context, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_purge_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.GroupID,
		&session.IP,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}
