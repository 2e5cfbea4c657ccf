// Package lock serializes matrix writes for one separation across API replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrBusy means another replica holds the lock for the same separation.
var ErrBusy = errors.New("another operation is in progress for this separation")

type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Key names the lock guarding one separation.
func Key(separationID int64) string {
	return fmt.Sprintf("lock:separation:%d", separationID)
}

// Noop is used when no Redis address is configured. Postgres row locks still
// serialize writers.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, key string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedis connects to addr and pings it once.
func NewRedis(ctx context.Context, addr string, ttl, wait time.Duration) (*RedisLocker, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	return NewRedisLocker(redislock.New(rdb), ttl, wait), rdb, nil
}

func NewRedisLocker(client *redislock.Client, ttl, wait time.Duration) *RedisLocker {
	backoff := 100 * time.Millisecond
	retries := int(wait / backoff)
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(backoff), retries),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		err := lk.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
