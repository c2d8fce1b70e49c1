package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

const lockKeyPrefix = "lock:slot:"

type redisSlotLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

// NewRedisSlotLocker creates a locker that uses a per slot Redis key. A busy
// key is retried up to retries times, retryDelay apart, then reported as
// availability.ErrLockNotAcquired.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration, retries int, retryDelay time.Duration) availability.Locker {
	if retries < 0 {
		retries = 0
	}
	return &redisSlotLocker{
		client:     client,
		ttl:        ttl,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

func (l *redisSlotLocker) WithLock(ctx context.Context, key availability.Key, fn func(ctx context.Context) error) error {
	lockKey := lockKeyPrefix + key.String()
	token := uuid.NewString()

	if err := l.acquire(ctx, lockKey, token); err != nil {
		return err
	}

	defer func() {
		// release even if the caller's context was cancelled mid-flight
		_ = l.release(context.WithoutCancel(ctx), lockKey, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisSlotLocker) acquire(ctx context.Context, lockKey, token string) error {
	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire slot lock: %w", err)
		}
		if ok {
			return nil
		}
		if attempt >= l.retries {
			return availability.ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
