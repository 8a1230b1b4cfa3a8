// Package redislock serializes webhook handling per transaction
// reference. The database marker makes reconciliation idempotent; the
// lock keeps two retries of the same webhook from interleaving their
// reads and writes in the first place.
package redislock

import (
	"context"
	"time"

	"charipay/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a crashed handler can hold a lock.
const DefaultTTL = 30 * time.Second

// Locker acquires short-lived per-key locks in Redis.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// MustOpen connects to Redis and fails fast when it is unreachable.
func MustOpen(ctx context.Context, cfg config.RedisCfg) *Locker {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable")
	}

	return New(client, DefaultTTL)
}

// New creates a Locker over an existing client.
func New(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock for a key. It returns false when another
// holder has it.
func (l *Locker) Acquire(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, lockKey(key), "1", l.ttl).Result()
}

// Release drops the lock for a key.
func (l *Locker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, lockKey(key)).Err()
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}

func lockKey(key string) string {
	return "charipay:lock:" + key
}
