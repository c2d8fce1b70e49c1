package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-scheduling/internal/availability"
)

const (
	holdKeyPrefix = "hold:slot:"

	// holds outlive their slot day by this much, then Redis drops them
	holdRetention = 48 * time.Hour
	minHoldTTL    = time.Minute
)

// RedisIndex keeps slot holds as plain keys so that several api-server
// instances share one view of occupancy. SETNX gives the insert-if-absent.
type RedisIndex struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client, now: time.Now}
}

func holdKey(key availability.Key) string {
	return holdKeyPrefix + key.String()
}

func (r *RedisIndex) ttl(key availability.Key) time.Duration {
	ttl := key.Date.Add(holdRetention).Sub(r.now())
	if ttl < minHoldTTL {
		return minHoldTTL
	}
	return ttl
}

func (r *RedisIndex) IsHeld(ctx context.Context, key availability.Key) (bool, error) {
	n, err := r.client.Exists(ctx, holdKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check slot hold: %w", err)
	}
	return n == 1, nil
}

func (r *RedisIndex) Hold(ctx context.Context, key availability.Key) error {
	ok, err := r.client.SetNX(ctx, holdKey(key), r.now().UTC().Format(time.RFC3339), r.ttl(key)).Result()
	if err != nil {
		return fmt.Errorf("hold slot: %w", err)
	}
	if !ok {
		return availability.ErrAlreadyHeld
	}
	return nil
}

func (r *RedisIndex) Release(ctx context.Context, key availability.Key) error {
	if err := r.client.Del(ctx, holdKey(key)).Err(); err != nil {
		return fmt.Errorf("release slot hold: %w", err)
	}
	return nil
}

func (r *RedisIndex) Holds(ctx context.Context) ([]availability.Key, error) {
	var keys []availability.Key

	iter := r.client.Scan(ctx, 0, holdKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		k, err := availability.ParseKey(strings.TrimPrefix(iter.Val(), holdKeyPrefix))
		if err != nil {
			// not ours to interpret; leave it for Redis expiry
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan slot holds: %w", err)
	}

	return keys, nil
}
