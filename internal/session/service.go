// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session is the authoritative store of login sessions.

A session is a server-side row; the client only ever holds its opaque id.
Verification is therefore a store lookup, and revocation by id, by device
family or by account takes effect on the very next request.

Expiry is lazy: expired rows are treated as absent by [Service.Verify] and
removed later by [Service.PurgeExpired].
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/platform/ctxutil"
	"github.com/taibuivan/lumina/internal/platform/sec"
	"github.com/taibuivan/lumina/pkg/uuid"
)

// idBytes is the entropy of a session id before encoding.
const idBytes = 32

// Service implements the session lifecycle on top of a [Repository].
type Service struct {
	repository Repository
	ttl        time.Duration
	timeout    time.Duration
	now        func() time.Time
}

// NewService creates a [Service] issuing sessions valid for ttl.
func NewService(repository Repository, ttl time.Duration) *Service {
	return &Service{
		repository: repository,
		ttl:        ttl,
		timeout:    constants.StoreTimeout,
		now:        time.Now,
	}
}

// TTL returns the lifetime of newly issued sessions.
func (service *Service) TTL() time.Duration {
	return service.ttl
}

/*
Create issues a new session for an authenticated account.

The id is fresh randomness, never derived from the account. Either the row is
persisted in full or an error wrapping [ErrUnavailable] is returned.
*/
func (service *Service) Create(ctx context.Context, input NewSession) (*Session, error) {
	if input.AccountID == "" {
		return nil, errors.New("session: account id is required")
	}

	id, err := sec.GenerateSecureToken(idBytes)
	if err != nil {
		return nil, fmt.Errorf("session_create_failed: %w", err)
	}

	groupID := input.GroupID
	if groupID == "" {
		groupID = uuid.New()
	}

	now := service.now().UTC()
	session := &Session{
		ID:        id,
		AccountID: input.AccountID,
		GroupID:   groupID,
		IP:        input.IP,
		UserAgent: truncate(input.UserAgent, 512),
		CreatedAt: now,
		ExpiresAt: now.Add(service.ttl),
	}

	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	if err := service.repository.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: insert: %v", ErrUnavailable, err)
	}

	return session, nil
}

/*
Verify resolves a session id to a live session.

Returns:
  - *Session: the live session
  - error: ErrAbsent when the id is unknown, revoked or expired;
    an error wrapping ErrUnavailable when the store cannot answer
*/
func (service *Service) Verify(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrAbsent
	}

	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	session, err := service.repository.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		service.debug(ctx, "unknown")
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find: %v", ErrUnavailable, err)
	}

	if session.RevokedAt != nil {
		service.debug(ctx, "revoked")
		return nil, ErrAbsent
	}

	if session.ExpiredAt(service.now()) {
		service.debug(ctx, "expired")
		return nil, ErrAbsent
	}

	return session, nil
}

// Extend slides the expiry forward when less than half the lifetime remains.
// It reports whether the session was renewed.
func (service *Service) Extend(ctx context.Context, session *Session) (bool, error) {
	now := service.now().UTC()
	if session.ExpiresAt.Sub(now) >= service.ttl/2 {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	expiresAt := now.Add(service.ttl)
	if err := service.repository.UpdateExpiry(ctx, session.ID, expiresAt); err != nil {
		return false, fmt.Errorf("%w: extend: %v", ErrUnavailable, err)
	}

	session.ExpiresAt = expiresAt
	return true, nil
}

// Revoke ends one session. Unknown ids are ignored.
func (service *Service) Revoke(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	if err := service.repository.RevokeByID(ctx, id, service.now().UTC()); err != nil {
		return fmt.Errorf("%w: revoke: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeGroup ends every session of a device family and returns how many were active.
func (service *Service) RevokeGroup(ctx context.Context, groupID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	count, err := service.repository.RevokeByGroup(ctx, groupID, service.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: revoke group: %v", ErrUnavailable, err)
	}
	return count, nil
}

// RevokeAccount ends every session of an account, for example after a password reset.
func (service *Service) RevokeAccount(ctx context.Context, accountID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	count, err := service.repository.RevokeByAccount(ctx, accountID, service.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: revoke account: %v", ErrUnavailable, err)
	}
	return count, nil
}

// ListActive returns the live sessions of an account, newest first.
func (service *Service) ListActive(ctx context.Context, accountID string) ([]*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	sessions, err := service.repository.ListActive(ctx, accountID, service.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}
	return sessions, nil
}

// PurgeExpired deletes rows that expired or were revoked more than grace ago.
func (service *Service) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	count, err := service.repository.DeleteExpired(ctx, service.now().UTC().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %v", ErrUnavailable, err)
	}
	return count, nil
}

// RunPurger calls PurgeExpired every interval until ctx is cancelled.
func (service *Service) RunPurger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := service.PurgeExpired(ctx, time.Hour)
			if err != nil {
				logger.Warn("session_purge_failed", slog.Any("error", err))
				continue
			}
			if count > 0 {
				logger.Info("session_purge_completed", slog.Int64("deleted", count))
			}
		}
	}
}

// debug records why a session was treated as absent. The reason is diagnostics only.
func (service *Service) debug(ctx context.Context, reason string) {
	ctxutil.GetLogger(ctx).DebugContext(ctx, "session_absent", slog.String("reason", reason))
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
