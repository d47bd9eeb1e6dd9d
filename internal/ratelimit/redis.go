package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rl:"

// slidingWindow trims, counts and conditionally records a hit in one round
// trip. Returns {allowed, count, oldest_ms}.
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
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then oldestScore = tonumber(oldest[2]) end
return {allowed, count, oldestScore}
`)

// RedisStore shares windows between instances.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := s.now()
	res, err := slidingWindow.Run(ctx, s.client, []string{keyPrefix + key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		strconv.FormatInt(now.UnixNano(), 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	resetAt := time.UnixMilli(res[2]).Add(window)
	result := &Result{
		Allowed: res[0] == 1,
		Limit:   limit,
		ResetAt: resetAt,
	}
	if result.Allowed {
		result.Remaining = limit - int(res[1])
	} else {
		result.RetryAfter = retryAfter(now, resetAt)
	}
	return result, nil
}
