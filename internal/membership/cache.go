package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache answers "is user U a member of room R" with bounded staleness.
// Only booleans are cached, never member lists.
type Cache interface {
	Get(ctx context.Context, roomID, userID string) (bool, error)
	Set(ctx context.Context, roomID, userID string, isMember bool) error
	Invalidate(ctx context.Context, roomID, userID string) error
	Close() error
}

const memberCachePrefix = "membership"

func memberCacheKey(roomID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", memberCachePrefix, roomID, userID)
}

// RedisCache is the Redis-backed membership cache. Entries are "1"/"0"
// strings with a short TTL; a join deletes the entry instead of writing
// it, so a concurrent duplicate-join rejection can never pin a stale
// value for the full window.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, roomID, userID string) (bool, error) {
	val, err := c.client.Get(ctx, memberCacheKey(roomID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, ErrCacheMiss
		}
		return false, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val == "1", nil
}

func (c *RedisCache) Set(ctx context.Context, roomID, userID string, isMember bool) error {
	val := "0"
	if isMember {
		val = "1"
	}
	if err := c.client.Set(ctx, memberCacheKey(roomID, userID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, roomID, userID string) error {
	if err := c.client.Del(ctx, memberCacheKey(roomID, userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
