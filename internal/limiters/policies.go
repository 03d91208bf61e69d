package limiters

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// RegistrationConfig is the sign-up throttle, 3 per hour by default.
type RegistrationConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// EmailConfig is the throttle for mail-sending operations, 3 per 30 minutes by default.
type EmailConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// NewRegistrationLimiter builds the sign-up limiter.
func NewRegistrationLimiter(redisClient redis.UniversalClient, cfg RegistrationConfig) (*FixedWindow, error) {
	return NewFixedWindow(redisClient, Config{
		Prefix:      "lreg:",
		MaxAttempts: cfg.MaxAttempts,
		Window:      cfg.Window,
	})
}

// NewEmailLimiter builds the limiter shared by forgot-password and resends.
func NewEmailLimiter(redisClient redis.UniversalClient, cfg EmailConfig) (*FixedWindow, error) {
	return NewFixedWindow(redisClient, Config{
		Prefix:      "lem:",
		MaxAttempts: cfg.MaxAttempts,
		Window:      cfg.Window,
	})
}
