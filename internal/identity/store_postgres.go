// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/lumina/internal/platform/dberr"
	"github.com/taibuivan/lumina/pkg/uuid"
)

// Constraint names from data/migrations.
const (
	constraintEmail = "identity_email_key"
	constraintLink  = "oauth_link_provider_key"
)

// PostgresRepository implements [Repository] on the auth schema.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL identity repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const accountSelect = `
	SELECT a.id, a.identity_id, a.kind, a.two_factor_enabled, a.created_at,
	       i.email, COALESCE(i.phone, ''), i.email_verified, i.phone_verified,
	       COALESCE(i.password_hash, ''), i.display_name, COALESCE(i.avatar_url, '')
	FROM auth.account a
	JOIN auth.identity i ON i.id = a.identity_id`

/*
FindAccountByID retrieves an account joined with its identity.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated entity
  - error: ErrNotFound or database errors
*/
func (repository *PostgresRepository) FindAccountByID(context context.Context, id string) (*Account, error) {
	account, err := scanAccount(repository.pool.QueryRow(context, accountSelect+` WHERE a.id = $1`, id))
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_identity_find_by_id_failed: %w", err)
	}
	return account, nil
}

/*
FindAccountByEmail retrieves an account by its normalized email.

Parameters:
  - context: context.Context
  - email: string (already lower-cased)

Returns:
  - *Account: Hydrated entity
  - error: ErrNotFound or database errors
*/
func (repository *PostgresRepository) FindAccountByEmail(context context.Context, email string) (*Account, error) {
	account, err := scanAccount(repository.pool.QueryRow(context, accountSelect+` WHERE lower(i.email) = $1`, email))
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_identity_find_by_email_failed: %w", err)
	}
	return account, nil
}

// FindLink returns the link for (provider, providerID).
func (repository *PostgresRepository) FindLink(context context.Context, provider, providerID string) (*Link, error) {
	const query = `
		SELECT provider, provider_id, account_id, COALESCE(email, ''), COALESCE(display_name, ''), COALESCE(avatar_url, ''), created_at
		FROM auth.oauth_link
		WHERE provider = $1 AND provider_id = $2`

	link := &Link{}
	err := repository.pool.QueryRow(context, query, provider, providerID).Scan(
		&link.Provider,
		&link.ProviderID,
		&link.AccountID,
		&link.Email,
		&link.DisplayName,
		&link.AvatarURL,
		&link.CreatedAt,
	)
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_oauth_link_find_failed: %w", err)
	}
	return link, nil
}

/*
CreateAccount inserts identity, account and optional link in one transaction.

Description: Either all rows exist afterwards or none do. Unique violations on
the email index or the link key are reported as ErrEmailTaken / ErrLinkTaken so
the federator can re-resolve after losing a race.
*/
func (repository *PostgresRepository) CreateAccount(context context.Context, input NewAccount, link *Link) (*Account, error) {
	now := time.Now().UTC()
	account := &Account{
		ID:            uuid.New(),
		IdentityID:    uuid.New(),
		Kind:          input.Kind,
		Email:         input.Email,
		Phone:         input.Phone,
		EmailVerified: input.EmailVerified,
		DisplayName:   input.DisplayName,
		AvatarURL:     input.AvatarURL,
		PasswordHash:  input.PasswordHash,
		CreatedAt:     now,
	}

	err := pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		const insertIdentity = `
			INSERT INTO auth.identity (id, email, phone, email_verified, phone_verified, password_hash, display_name, avatar_url, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, false, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $8)`

		if _, err := tx.Exec(context, insertIdentity,
			account.IdentityID, account.Email, account.Phone, account.EmailVerified,
			account.PasswordHash, account.DisplayName, account.AvatarURL, now,
		); err != nil {
			return err
		}

		const insertAccount = `
			INSERT INTO auth.account (id, identity_id, kind, two_factor_enabled, created_at)
			VALUES ($1, $2, $3, false, $4)`

		if _, err := tx.Exec(context, insertAccount, account.ID, account.IdentityID, account.Kind, now); err != nil {
			return err
		}

		if link == nil {
			return nil
		}

		link.AccountID = account.ID
		return insertLink(context, tx, link, now, false)
	})

	switch {
	case err == nil:
		return account, nil
	case dberr.IsUniqueViolation(err, constraintEmail):
		return nil, ErrEmailTaken
	case dberr.IsUniqueViolation(err, constraintLink):
		return nil, ErrLinkTaken
	default:
		return nil, fmt.Errorf("postgres_identity_create_failed: %w", err)
	}
}

/*
CreateLink inserts the link unless the provider identity is already linked,
then re-reads the stored row.

Returns:
  - *Link: The stored link, which may point at a different account
  - error: Database errors
*/
func (repository *PostgresRepository) CreateLink(context context.Context, link *Link) (*Link, error) {
	if err := insertLink(context, repository.pool, link, time.Now().UTC(), true); err != nil {
		return nil, fmt.Errorf("postgres_oauth_link_insert_failed: %w", err)
	}
	return repository.FindLink(context, link.Provider, link.ProviderID)
}

// MarkEmailVerified flips the email_verified flag of the account's identity.
func (repository *PostgresRepository) MarkEmailVerified(context context.Context, accountID string) error {
	const query = `
		UPDATE auth.identity i
		SET email_verified = true, updated_at = now()
		FROM auth.account a
		WHERE a.identity_id = i.id AND a.id = $1`

	tag, err := repository.pool.Exec(context, query, accountID)
	if err != nil {
		return fmt.Errorf("postgres_identity_mark_verified_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// linkWriter is satisfied by both *pgxpool.Pool and pgx.Tx.
type linkWriter interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// insertLink writes a link row. With ignoreConflict an existing link is left untouched;
// without it the unique violation surfaces to the caller.
func insertLink(context context.Context, db linkWriter, link *Link, now time.Time, ignoreConflict bool) error {
	query := `
		INSERT INTO auth.oauth_link (provider, provider_id, account_id, email, display_name, avatar_url, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)`
	if ignoreConflict {
		query += ` ON CONFLICT ON CONSTRAINT ` + constraintLink + ` DO NOTHING`
	}

	_, err := db.Exec(context, query,
		link.Provider, link.ProviderID, link.AccountID,
		link.Email, link.DisplayName, link.AvatarURL, now,
	)
	return err
}

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.IdentityID,
		&account.Kind,
		&account.TwoFactorEnabled,
		&account.CreatedAt,
		&account.Email,
		&account.Phone,
		&account.EmailVerified,
		&account.PhoneVerified,
		&account.PasswordHash,
		&account.DisplayName,
		&account.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}
