// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit enforces per-route fixed-window request budgets.

A bucket is identified by route name, subject (account id or client IP) and the
start of the current window. The first request of a window creates the bucket;
it expires on its own once the window is over.
*/
package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/taibuivan/lumina/internal/route"
)

// Result is the outcome of one [Limiter.Allow] call.
type Result struct {
	Allowed    bool
	Count      int64
	Remaining  int64
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1.
func (r Result) RetryAfterSeconds() int {
	seconds := int(math.Ceil(r.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter counts a request against a bucket.
//
// An error means the backend could not answer; callers fail closed.
type Limiter interface {
	Allow(ctx context.Context, key string, limit route.RateLimit) (Result, error)
}

// Key builds the bucket key for a route and subject.
func Key(routeName, subject string) string {
	return routeName + ":" + subject
}

// window returns the start of the window containing now and the time left in it.
func window(now time.Time, size time.Duration) (time.Time, time.Duration) {
	start := now.Truncate(size)
	return start, start.Add(size).Sub(now)
}

func decide(count int64, limit route.RateLimit, left time.Duration) Result {
	max := int64(limit.Max)
	result := Result{Allowed: count <= max, Count: count, Remaining: max - count}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		result.RetryAfter = left
	}
	return result
}
