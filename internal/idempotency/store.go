package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "invbot:callback:"

// Store absorbs gateway callback redeliveries. The gateway keeps
// re-posting a callback until it gets a 200, so a processed callback
// identity is remembered for the TTL window.
type Store struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewStore(redis redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{redis: redis, ttl: ttl}
}

// FirstSeen marks the key and reports whether this was its first
// occurrence within the TTL window.
func (s *Store) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := s.redis.SetNX(ctx, redisKeyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("callback dedupe setnx: %w", err)
	}
	return ok, nil
}
