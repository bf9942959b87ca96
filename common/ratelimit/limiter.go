package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// Limiter provides Redis-backed rate limiting with an embedded Lua script.
// The public resolve endpoints use it to keep scripted scanners from
// hammering code lookups.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	logger Logger
}

// New creates a new rate limiter with the embedded Lua script
func New(redisClient *redis.Client, logger Logger) *Limiter {
	return &Limiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckScanLimit checks the per-client limit for public resolution requests
func (l *Limiter) CheckScanLimit(ctx context.Context, clientID string, limit int64, windowSec int) (*Result, error) {
	key := fmt.Sprintf("rate_limit:scan:%s", clientID)
	return l.check(ctx, key, limit, windowSec)
}

// CheckOwnerLimit checks the per-owner limit for mutation endpoints
func (l *Limiter) CheckOwnerLimit(ctx context.Context, ownerID string, limit int64, windowSec int) (*Result, error) {
	key := fmt.Sprintf("rate_limit:owner:%s", ownerID)
	return l.check(ctx, key, limit, windowSec)
}

// check executes the rate limit Lua script atomically
func (l *Limiter) check(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	raw, err := l.script.Run(ctx, l.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		l.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	result := &Result{
		Allowed:           arr[0].(int64) == 1,
		CurrentCount:      arr[1].(int64),
		Limit:             arr[2].(int64),
		RetryAfterSeconds: arr[3].(int64),
	}

	if !result.Allowed {
		l.logger.Warn("rate limit exceeded",
			"key", key,
			"current", result.CurrentCount,
			"limit", result.Limit,
			"retry_after", result.RetryAfterSeconds)
	}

	return result, nil
}
