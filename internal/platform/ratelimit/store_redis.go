package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// slidingWindow keeps one sorted-set member per admitted request, scored by
// its arrival in milliseconds. Returns {allowed, count, reset_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, count, reset}
`)

// RedisStore shares windows between instances. The check and the insert run
// in one script so concurrent requests cannot overshoot the limit.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := s.now()
	res, err := slidingWindow.Run(ctx, s.client, []string{keyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit check: unexpected reply %v", res)
	}
	count := int(res[1])
	return &Result{
		Allowed:   res[0] == 1,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   time.UnixMilli(res[2]),
	}, nil
}
