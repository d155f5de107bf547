// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/lumina/internal/platform/constants"
	"github.com/taibuivan/lumina/internal/route"
)

// RedisLimiter keeps buckets in Redis so every instance shares them.
type RedisLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed [Limiter].
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

/*
Allow increments the bucket and reports whether the request fits the budget.

INCR and PEXPIRE run in one MULTI/EXEC so a bucket is never left without a TTL.

Returns:
  - Result: the decision and the time left in the window
  - error: connectivity errors
*/
func (limiter *RedisLimiter) Allow(ctx context.Context, key string, limit route.RateLimit) (Result, error) {
	start, left := window(limiter.now(), limit.Window)
	bucket := bucketKey(key, start)

	ctx, cancel := context.WithTimeout(ctx, constants.StoreTimeout)
	defer cancel()

	pipe := limiter.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.PExpire(ctx, bucket, left+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis_ratelimit_failed: %w", err)
	}

	return decide(incr.Val(), limit, left), nil
}

func bucketKey(key string, start time.Time) string {
	return constants.RedisPrefixRateLimit + key + ":" + strconv.FormatInt(start.Unix(), 10)
}
