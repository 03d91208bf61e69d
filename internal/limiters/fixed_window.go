package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited         = errors.New("rate limited")
	ErrLimiterUnavailable  = errors.New("limiter backend unavailable")
	errInvalidWindowConfig = errors.New("invalid fixed window configuration")
)

// Config is one fixed-window policy.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Result describes a single hit.
type Result struct {
	Count             int64
	AttemptsRemaining int
	RetryAfter        time.Duration
}

// FixedWindow counts hits per key in Redis.
type FixedWindow struct {
	redis  redis.UniversalClient
	config Config
}

// NewFixedWindow validates cfg and returns a limiter.
func NewFixedWindow(redisClient redis.UniversalClient, cfg Config) (*FixedWindow, error) {
	if redisClient == nil || cfg.Prefix == "" || cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil, errInvalidWindowConfig
	}
	return &FixedWindow{redis: redisClient, config: cfg}, nil
}

// Allow records one hit for key. When the window is exhausted it returns
// ErrRateLimited along with the time left in the window.
func (l *FixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	if l == nil {
		return Result{}, nil
	}

	k := l.config.Prefix + key
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	res := Result{Count: count}
	if remaining := int64(l.config.MaxAttempts) - count; remaining > 0 {
		res.AttemptsRemaining = int(remaining)
	}

	if count > int64(l.config.MaxAttempts) {
		ttl, err := l.redis.PTTL(ctx, k).Result()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if ttl < 0 {
			// Key lost its expiry; start a new window rather than blocking forever.
			if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
			}
			ttl = l.config.Window
		}
		res.RetryAfter = ttl
		return res, ErrRateLimited
	}

	return res, nil
}

// Reset clears key's window.
func (l *FixedWindow) Reset(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.config.Prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}
