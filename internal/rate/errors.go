package rate

import "errors"

var (
	// ErrRateLimited is returned by Tracker.Attempt when the key is in its penalty window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures from RedisStore.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
