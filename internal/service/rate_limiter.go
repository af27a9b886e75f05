package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lunasphere/account-service/pkg/database"
)

// RateLimiter throttles the unauthenticated account endpoints using a
// sliding window log in Redis. Keys are scoped per client and per route so
// hammering one flow does not lock a client out of the others.
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// Allow records a request under key and reports whether it fits the limit
// within the window
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := rateLimitKey(key)

	windowStart := fmt.Sprintf("%d", now.Add(-window).Unix())
	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", windowStart).Err(); err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}
	if count >= int64(limit) {
		return false, nil
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	if err := r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: member,
	}).Err(); err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	// Buffer past the window so the cleanup above always sees the full log
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return true, nil
}

// Remaining returns how many requests are still allowed for key in the window
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	redisKey := rateLimitKey(key)

	windowStart := fmt.Sprintf("%d", time.Now().Add(-window).Unix())
	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", windowStart).Err(); err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
