package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "abl:"
	fieldAttempts  = "attempts"
	fieldLast      = "last"
)

// RedisStore keeps the ledger in Redis hashes so every instance sees the
// same counters. Entries expire maxAge after their last write.
type RedisStore struct {
	redis  redis.UniversalClient
	maxAge time.Duration
}

// NewRedisStore returns a shared ledger. maxAge <= 0 defaults to one hour.
func NewRedisStore(client redis.UniversalClient, maxAge time.Duration) *RedisStore {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RedisStore{redis: client, maxAge: maxAge}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	fields, err := s.redis.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}

	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return Entry{}, false, nil
	}
	last, err := strconv.ParseInt(fields[fieldLast], 10, 64)
	if err != nil {
		return Entry{}, false, nil
	}

	return Entry{Attempts: attempts, LastAttempt: time.UnixMilli(last)}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, entry Entry) error {
	k := redisKeyPrefix + key
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldAttempts, entry.Attempts, fieldLast, entry.LastAttempt.UnixMilli())
		pipe.PExpire(ctx, k, s.maxAge)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Sweep is a no-op: Redis expires entries maxAge after their last attempt.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
