package bucket

import (
	"context"
	"fmt"
	"time"

	"showroom/internal/ratelimit/models"
	"showroom/pkg/requestcontext"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and (when there is room) records in one
// round trip, so concurrent instances cannot both admit the 51st request.
//
// KEYS[1] window key
// ARGV    now_ms, window_ms, limit, cost, member prefix
// returns {allowed, count, reset_ms}
var slidingWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local cost   = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count + cost > limit then
  local reset = now + window
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if oldest[2] then
    reset = tonumber(oldest[2]) + window
  end
  return {0, count, reset}
end

for i = 1, cost do
  redis.call('ZADD', key, now, ARGV[5] .. ':' .. i)
end
redis.call('PEXPIRE', key, window)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {1, count + cost, tonumber(oldest[2]) + window}
`)

// RedisBucketStore keeps sliding windows in Redis sorted sets so several
// instances share one view of each client.
type RedisBucketStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedis constructs a Redis-backed bucket store.
func NewRedis(client redis.UniversalClient, keyPrefix string) *RedisBucketStore {
	if keyPrefix == "" {
		keyPrefix = "showroom:ratelimit:"
	}
	return &RedisBucketStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

func (s *RedisBucketStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if key == "" {
		return nil, fmt.Errorf("rate limit key is required")
	}
	if limit <= 0 || cost <= 0 {
		return nil, fmt.Errorf("rate limit cost and limit must be positive")
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive")
	}

	now := requestcontext.Now(ctx)
	raw, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, cost, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run sliding window script: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("unexpected sliding window reply of length %d", len(raw))
	}

	allowed := raw[0] == 1
	resetAt := time.UnixMilli(raw[2])
	return &models.RateLimitResult{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  max(limit-int(raw[1]), 0),
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(allowed, resetAt, now),
	}, nil
}

// Reset clears the window for a key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset rate limit window: %w", err)
	}
	return nil
}

// GetCurrentCount returns the number of admissions inside the key's window.
func (s *RedisBucketStore) GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error) {
	now := requestcontext.Now(ctx)
	n, err := s.client.ZCount(ctx, s.keyPrefix+key,
		fmt.Sprintf("(%d", now.Add(-window).UnixMilli()), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count rate limit window: %w", err)
	}
	return int(n), nil
}
