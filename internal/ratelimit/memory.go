// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/lumina/internal/route"
)

type bucket struct {
	start time.Time
	count int64
}

// MemoryLimiter keeps buckets in process memory. It suits a single instance
// and tests; buckets of finished windows are dropped on the next call.
type MemoryLimiter struct {
	lock    sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewMemoryLimiter creates an in-process [Limiter].
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// SetClock replaces the time source.
func (limiter *MemoryLimiter) SetClock(now func() time.Time) {
	limiter.lock.Lock()
	defer limiter.lock.Unlock()
	limiter.now = now
}

func (limiter *MemoryLimiter) Allow(_ context.Context, key string, limit route.RateLimit) (Result, error) {
	limiter.lock.Lock()
	defer limiter.lock.Unlock()

	start, left := window(limiter.now(), limit.Window)

	current, ok := limiter.buckets[key]
	if !ok || !current.start.Equal(start) {
		limiter.sweep(start)
		current = &bucket{start: start}
		limiter.buckets[key] = current
	}
	current.count++

	return decide(current.count, limit, left), nil
}

// sweep drops buckets from earlier windows.
func (limiter *MemoryLimiter) sweep(now time.Time) {
	for key, stale := range limiter.buckets {
		if stale.start.Before(now) {
			delete(limiter.buckets, key)
		}
	}
}
