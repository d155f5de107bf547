// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package staff

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements [Repository] with aggregate queries.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed staff store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) AccountsByKind(context context.Context) (map[string]int, error) {
	rows, err := repository.db.Query(context, `SELECT kind, count(*) FROM auth.account GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("postgres_staff_accounts_failed: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("postgres_staff_accounts_failed: %w", err)
		}
		counts[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_staff_accounts_failed: %w", err)
	}
	return counts, nil
}

func (repository *PostgresRepository) CountWorkspaces(context context.Context) (int, error) {
	var count int
	if err := repository.db.QueryRow(context, `SELECT count(*) FROM workspace.workspace`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_staff_workspaces_failed: %w", err)
	}
	return count, nil
}

func (repository *PostgresRepository) CountActiveSessions(context context.Context, now time.Time) (int, error) {
	const query = `SELECT count(*) FROM auth.session WHERE revoked_at IS NULL AND expires_at >= $1`

	var count int
	if err := repository.db.QueryRow(context, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_staff_sessions_failed: %w", err)
	}
	return count, nil
}
