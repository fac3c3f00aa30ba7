package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devhb1/FrappeLms-sub002/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyCompletionClient = "fulfillment:complete:client:%s"

// CompletionLimiter throttles the manual completion fallback per
// client so a browser loop cannot hammer the payment provider API.
type CompletionLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCompletionLimiter(cfg config.Config) (*CompletionLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("completion rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &CompletionLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.Rate,
		burst:   limitCfg.Burst,
	}, nil
}

func (l *CompletionLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CompletionLimiter) Allow(ctx context.Context, clientKey string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCompletionClient, strings.TrimSpace(clientKey)), l.rate, l.burst)
}
