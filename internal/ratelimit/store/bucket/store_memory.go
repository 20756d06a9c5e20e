package bucket

import (
	"context"
	"fmt"
	"slices"
	"time"

	"showroom/internal/ratelimit/models"
	psync "showroom/pkg/platform/sync"
	"showroom/pkg/requestcontext"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxKeys bounds the number of client windows held in memory.
const DefaultMaxKeys = 10000

// InMemoryBucketStore keeps one sliding window per key in a bounded LRU
// cache. Under key pressure the least recently seen client loses its history,
// which can only make the limiter more permissive for that client.
type InMemoryBucketStore struct {
	windows *lru.Cache[string, *slidingWindow]
	locks   *psync.ShardedMutex
}

// slidingWindow holds the admission timestamps inside the trailing window,
// oldest first.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// tryConsume prunes expired entries, then admits the request if there is room.
// A rejected request is not recorded.
func (sw *slidingWindow) tryConsume(cost, limit int, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	sw.cleanupExpired(now)

	if len(sw.timestamps)+cost > limit {
		resetAt = now.Add(sw.window)
		if len(sw.timestamps) > 0 {
			resetAt = sw.timestamps[0].Add(sw.window)
		}
		return false, max(limit-len(sw.timestamps), 0), resetAt
	}

	// Concurrent callers can reach the lock out of request-time order.
	at, _ := slices.BinarySearchFunc(sw.timestamps, now, func(ts, t time.Time) int {
		if ts.After(t) {
			return 1
		}
		return -1
	})
	sw.timestamps = slices.Insert(sw.timestamps, at, slices.Repeat([]time.Time{now}, cost)...)
	return true, limit - len(sw.timestamps), sw.timestamps[0].Add(sw.window)
}

func (sw *slidingWindow) count(now time.Time) int {
	sw.cleanupExpired(now)
	return len(sw.timestamps)
}

func (sw *slidingWindow) cleanupExpired(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		sw.timestamps = append(sw.timestamps[:0:0], sw.timestamps[i:]...)
	}
}

// NewInMemoryBucketStore creates a store holding at most maxKeys windows.
func NewInMemoryBucketStore(maxKeys int) (*InMemoryBucketStore, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	cache, err := lru.New[string, *slidingWindow](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("create window cache: %w", err)
	}
	return &InMemoryBucketStore{
		windows: cache,
		locks:   psync.NewShardedMutex(0),
	}, nil
}

// Allow checks if a request is allowed and records it when it is.
func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

// AllowN checks a request of the given cost. "Now" comes from the request context.
func (s *InMemoryBucketStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	var (
		allowed   bool
		remaining int
		resetAt   time.Time
	)
	s.locks.Do(key, func() {
		sw, ok := s.windows.Get(key)
		if !ok {
			sw = &slidingWindow{window: window}
			s.windows.Add(key, sw)
		}
		sw.window = window
		allowed, remaining, resetAt = sw.tryConsume(cost, limit, now)
	})

	return &models.RateLimitResult{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(allowed, resetAt, now),
	}, nil
}

// Reset clears the window for a key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.locks.Do(key, func() {
		s.windows.Remove(key)
	})
	return nil
}

// GetCurrentCount returns the number of admissions inside the key's window.
func (s *InMemoryBucketStore) GetCurrentCount(ctx context.Context, key string) (int, error) {
	now := requestcontext.Now(ctx)
	var n int
	s.locks.Do(key, func() {
		if sw, ok := s.windows.Peek(key); ok {
			n = sw.count(now)
		}
	})
	return n, nil
}

// Cleanup drops windows with no admissions left inside their trailing window.
// It returns how many windows were removed.
func (s *InMemoryBucketStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for _, key := range s.windows.Keys() {
		s.locks.Do(key, func() {
			sw, ok := s.windows.Peek(key)
			if !ok {
				return
			}
			if sw.count(now) == 0 {
				s.windows.Remove(key)
				removed++
			}
		})
	}
	return removed, nil
}

// Len returns the number of windows currently held.
func (s *InMemoryBucketStore) Len() int {
	return s.windows.Len()
}

// retryAfterSeconds rounds the wait up so a client that honours it is admitted.
func retryAfterSeconds(allowed bool, resetAt, now time.Time) int {
	if allowed {
		return 0
	}
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	seconds := int(wait / time.Second)
	if wait%time.Second != 0 {
		seconds++
	}
	return seconds
}
