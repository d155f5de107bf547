// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"errors"
	"time"
)

var (
	// ErrAbsent is returned by Verify for missing, revoked and expired sessions alike.
	// Callers must not branch on which of the three it was.
	ErrAbsent = errors.New("session: absent")

	// ErrUnavailable wraps every failure of the backing store.
	ErrUnavailable = errors.New("session: store unavailable")

	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("session: not found")
)

// Session is the server-side record bound to the opaque cookie value.
type Session struct {
	ID        string
	AccountID string
	GroupID   string
	IP        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ExpiredAt reports whether now is strictly after the session expiry.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// NewSession is the input of [Service.Create].
type NewSession struct {
	AccountID string
	// GroupID joins an existing device family; empty starts a new one.
	GroupID   string
	IP        string
	UserAgent string
}

// Summary is the client-safe view of a session. It never carries the id.
type Summary struct {
	GroupID   string    `json:"groupId"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

// Summarize returns the client-safe view, marking the caller's own session.
func (s *Session) Summarize(currentID string) Summary {
	return Summary{
		GroupID:   s.GroupID,
		IP:        s.IP,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		Current:   s.ID == currentID,
	}
}
