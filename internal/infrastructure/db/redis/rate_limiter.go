package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter.
// Key format: ratelimit:<scope>:<key>
type RateLimiter struct {
	client      *redis.Client
	scope       string
	maxRequests int64
	window      time.Duration
}

func NewRateLimiter(client *redis.Client, scope string, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:      client,
		scope:       scope,
		maxRequests: int64(maxRequests),
		window:      window,
	}
}

// Allow counts one request for key. When the window's budget is spent it
// returns false and how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := fmt.Sprintf("ratelimit:%s:%s", l.scope, key)

	// SET NX opens the window with its TTL; MULTI keeps the counter from ever
	// existing without one.
	var incr *redis.IntCmd
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	}); err != nil {
		return false, 0, fmt.Errorf("rate limit: %w", err)
	}
	count := incr.Val()

	if count <= l.maxRequests {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		// A counter without expiry would block key forever; restart its window.
		if err == nil {
			_ = l.client.Expire(ctx, k, l.window).Err()
		}
		ttl = l.window
	}
	return false, ttl, nil
}
