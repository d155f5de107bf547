// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sessionfake provides an in-memory session repository for tests.
package sessionfake

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/lumina/internal/session"
)

var _ session.Repository = (*Repository)(nil)

// ErrDown is returned by every call while the fake is marked down.
var ErrDown = errors.New("sessionfake: store down")

// Repository keeps sessions in a map guarded by a mutex.
type Repository struct {
	lock     sync.RWMutex
	sessions map[string]*session.Session
	down     bool
	finds    int
}

// New creates an empty fake repository.
func New() *Repository {
	return &Repository{sessions: make(map[string]*session.Session)}
}

// SetDown makes every subsequent call fail with [ErrDown] until reset.
func (r *Repository) SetDown(down bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.down = down
}

// Finds returns how many FindByID calls were made.
func (r *Repository) Finds() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.finds
}

// Put stores a copy of s as-is, bypassing the service. Useful for expired fixtures.
func (r *Repository) Put(s *session.Session) {
	r.lock.Lock()
	defer r.lock.Unlock()
	clone := *s
	r.sessions[s.ID] = &clone
}

// Len returns the number of stored rows.
func (r *Repository) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}

func (r *Repository) Insert(_ context.Context, s *session.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return ErrDown
	}
	clone := *s
	r.sessions[s.ID] = &clone
	return nil
}

func (r *Repository) FindByID(_ context.Context, id string) (*session.Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.finds++
	if r.down {
		return nil, ErrDown
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *Repository) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return ErrDown
	}
	if s, ok := r.sessions[id]; ok && s.RevokedAt == nil {
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (r *Repository) RevokeByID(_ context.Context, id string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return ErrDown
	}
	if s, ok := r.sessions[id]; ok && s.RevokedAt == nil {
		revokedAt := at
		s.RevokedAt = &revokedAt
	}
	return nil
}

func (r *Repository) RevokeByGroup(_ context.Context, groupID string, at time.Time) (int64, error) {
	return r.revokeWhere(func(s *session.Session) bool { return s.GroupID == groupID }, at)
}

func (r *Repository) RevokeByAccount(_ context.Context, accountID string, at time.Time) (int64, error) {
	return r.revokeWhere(func(s *session.Session) bool { return s.AccountID == accountID }, at)
}

func (r *Repository) revokeWhere(match func(*session.Session) bool, at time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return 0, ErrDown
	}
	var count int64
	for _, s := range r.sessions {
		if s.RevokedAt == nil && match(s) {
			revokedAt := at
			s.RevokedAt = &revokedAt
			count++
		}
	}
	return count, nil
}

func (r *Repository) ListActive(_ context.Context, accountID string, now time.Time) ([]*session.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.down {
		return nil, ErrDown
	}
	var out []*session.Session
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.RevokedAt == nil && !s.ExpiresAt.Before(now) {
			clone := *s
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return 0, ErrDown
	}
	var count int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(cutoff) || (s.RevokedAt != nil && s.RevokedAt.Before(cutoff)) {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}
