// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/session"
	"github.com/taibuivan/lumina/internal/session/sessionfake"
)

const ttl = 24 * time.Hour

func newService(t *testing.T) (*session.Service, *sessionfake.Repository) {
	t.Helper()
	repository := sessionfake.New()
	return session.NewService(repository, ttl), repository
}

/*
TestCreate_IssuesOpaqueID checks id shape, grouping and expiry.
*/
func TestCreate_IssuesOpaqueID(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	first, err := service.Create(ctx, session.NewSession{AccountID: "acc-1", IP: "203.0.113.1", UserAgent: "test"})
	require.NoError(t, err)
	second, err := service.Create(ctx, session.NewSession{AccountID: "acc-1", GroupID: first.GroupID})
	require.NoError(t, err)

	assert.Len(t, first.ID, 43)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotContains(t, first.ID, "acc-1")
	assert.NotEmpty(t, first.GroupID)
	assert.Equal(t, first.GroupID, second.GroupID, "explicit group is reused")
	assert.WithinDuration(t, time.Now().Add(ttl), first.ExpiresAt, 5*time.Second)
}

/*
TestCreate_StoreDown wraps ErrUnavailable and persists nothing.
*/
func TestCreate_StoreDown(t *testing.T) {
	service, repository := newService(t)
	repository.SetDown(true)

	_, err := service.Create(context.Background(), session.NewSession{AccountID: "acc-1"})
	assert.ErrorIs(t, err, session.ErrUnavailable)

	repository.SetDown(false)
	assert.Equal(t, 0, repository.Len())
}

/*
TestVerify_AbsentCases treats unknown, revoked and expired sessions identically.
*/
func TestVerify_AbsentCases(t *testing.T) {
	service, repository := newService(t)
	ctx := context.Background()

	live, err := service.Create(ctx, session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)

	revoked, err := service.Create(ctx, session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, revoked.ID))

	repository.Put(&session.Session{
		ID:        "expired-session-id",
		AccountID: "acc-1",
		GroupID:   "grp",
		CreatedAt: time.Now().Add(-2 * ttl),
		ExpiresAt: time.Now().Add(-time.Second),
	})

	verified, err := service.Verify(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", verified.AccountID)

	for _, id := range []string{"", "unknown", revoked.ID, "expired-session-id"} {
		_, err := service.Verify(ctx, id)
		assert.ErrorIs(t, err, session.ErrAbsent, id)
	}
}

/*
TestSession_ExpiredAt uses a strict boundary: a session is still live at its expiry instant.
*/
func TestSession_ExpiredAt(t *testing.T) {
	expiresAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s := &session.Session{ExpiresAt: expiresAt}

	assert.False(t, s.ExpiredAt(expiresAt.Add(-time.Nanosecond)))
	assert.False(t, s.ExpiredAt(expiresAt))
	assert.True(t, s.ExpiredAt(expiresAt.Add(time.Nanosecond)))
}

/*
TestVerify_StoreDown fails closed with ErrUnavailable rather than ErrAbsent.
*/
func TestVerify_StoreDown(t *testing.T) {
	service, repository := newService(t)
	repository.SetDown(true)

	_, err := service.Verify(context.Background(), "some-id")
	assert.ErrorIs(t, err, session.ErrUnavailable)
	assert.NotErrorIs(t, err, session.ErrAbsent)
}

/*
TestRevokeGroup ends a whole device family but leaves other groups alive.
*/
func TestRevokeGroup(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	phone, err := service.Create(ctx, session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)
	tablet, err := service.Create(ctx, session.NewSession{AccountID: "acc-1", GroupID: phone.GroupID})
	require.NoError(t, err)
	laptop, err := service.Create(ctx, session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)

	count, err := service.RevokeGroup(ctx, phone.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = service.Verify(ctx, tablet.ID)
	assert.ErrorIs(t, err, session.ErrAbsent)
	_, err = service.Verify(ctx, laptop.ID)
	assert.NoError(t, err)

	count, err = service.RevokeAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

/*
TestExtend_OnlyPastHalfLife renews sessions nearing expiry and leaves fresh ones alone.
*/
func TestExtend_OnlyPastHalfLife(t *testing.T) {
	service, repository := newService(t)
	ctx := context.Background()

	fresh, err := service.Create(ctx, session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)
	renewed, err := service.Extend(ctx, fresh)
	require.NoError(t, err)
	assert.False(t, renewed)

	aging := &session.Session{ID: "aging", AccountID: "acc-1", GroupID: "g", ExpiresAt: time.Now().Add(time.Hour)}
	repository.Put(aging)

	renewed, err = service.Extend(ctx, aging)
	require.NoError(t, err)
	assert.True(t, renewed)
	assert.WithinDuration(t, time.Now().Add(ttl), aging.ExpiresAt, 5*time.Second)

	stored, err := service.Verify(ctx, "aging")
	require.NoError(t, err)
	assert.Equal(t, aging.ExpiresAt, stored.ExpiresAt)
}

/*
TestListActive_AndPurge lists live sessions and purges dead rows.
*/
func TestListActive_AndPurge(t *testing.T) {
	service, repository := newService(t)
	ctx := context.Background()

	live, err := service.Create(ctx, session.NewSession{AccountID: "acc-1"})
	require.NoError(t, err)
	repository.Put(&session.Session{ID: "old", AccountID: "acc-1", GroupID: "g", ExpiresAt: time.Now().Add(-48 * time.Hour)})

	sessions, err := service.ListActive(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Summarize(live.ID).Current)

	deleted, err := service.PurgeExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, repository.Len())
}
