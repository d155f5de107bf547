// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lumina/internal/route"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC)
	limiter := NewMemoryLimiter()
	limiter.SetClock(func() time.Time { return now })
	limit := route.RateLimit{Window: time.Minute, Max: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(ctx, "auth.login:1.2.3.4", limit)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Allow(ctx, "auth.login:1.2.3.4", limit)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Equal(t, 50*time.Second, result.RetryAfter)
	assert.Equal(t, 50, result.RetryAfterSeconds())

	// Other subjects have their own bucket.
	result, err = limiter.Allow(ctx, "auth.login:5.6.7.8", limit)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// A new window starts fresh and drops stale buckets.
	now = now.Add(time.Minute)
	result, err = limiter.Allow(ctx, "auth.login:1.2.3.4", limit)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Len(t, limiter.buckets, 1)
}

func TestBucketKey(t *testing.T) {
	start, left := window(time.Date(2026, 3, 1, 12, 0, 45, 0, time.UTC), time.Minute)

	assert.Equal(t, 15*time.Second, left)
	assert.Equal(t, "ratelimit:workspaces.members:acc-1:1772366400", bucketKey(Key("workspaces.members", "acc-1"), start))
}

func TestRetryAfterSeconds_RoundsUp(t *testing.T) {
	assert.Equal(t, 1, Result{RetryAfter: 10 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 2, Result{RetryAfter: 1500 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 1, Result{}.RetryAfterSeconds())
}
