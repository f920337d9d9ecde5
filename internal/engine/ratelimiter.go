package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a per-user sliding window limiter on batch submissions.
// Each user owns a sorted set of request ids scored by arrival time; a Lua
// script trims, counts and records in one round trip.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, math.floor(window / 1000) + 1)
    return 1
else
    return 0
end
`)

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      time.Second,
	}
}

func rlKey(userID string) string {
	return fmt.Sprintf("rl:user:%s", userID)
}

// Allow reports whether userID may submit another batch within limit per
// window. A limit of zero or less disables limiting.
func (rl *RateLimiter) Allow(ctx context.Context, userID string, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := time.Now().UnixMilli()

	result, err := rl.script.Run(ctx, rl.redisClient, []string{rlKey(userID)},
		now, rl.window.Milliseconds(), limit, uuid.NewString(),
	).Int64()
	if err != nil {
		// Fail open.
		rl.logger.Error("rate limiter script failed", "error", err, "user_id", userID)
		return true
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "user_id", userID, "limit", limit)
		return false
	}

	return true
}
