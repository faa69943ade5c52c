package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes a key only while it still carries our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker takes keys with SET NX PX so every API replica shares the same locks.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		prefix: "lock:",
		ttl:    ttl,
		wait:   wait,
		log:    log.With(zap.String("component", "redis_locker")),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalize(keys)
	token := uuid.NewString()

	var taken []string
	release := func(ctx context.Context) error {
		var firstErr error
		for _, k := range taken {
			if err := releaseScript.Run(ctx, l.rdb, []string{l.prefix + k}, token).Err(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("release lock %s: %w", k, err)
			}
		}
		return firstErr
	}

	for _, k := range keys {
		key := l.prefix + k
		err := retry(ctx, l.wait, 25*time.Millisecond, func() (bool, error) {
			return l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		})
		if err != nil {
			if relErr := release(context.Background()); relErr != nil {
				l.log.Warn("Failed to roll back partially acquired locks", zap.Error(relErr))
			}
			if err == ErrLocked {
				l.log.Info("Lock busy", zap.String("key", k))
				return nil, err
			}
			return nil, fmt.Errorf("acquire lock %s: %w", k, err)
		}
		taken = append(taken, k)
	}

	return release, nil
}
