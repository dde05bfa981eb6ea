package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key pattern:
// presence:user:{user_id}   HASH<conn_id -> {"instance_id","connected_at"}>
//
// The TTL sits on the whole hash; every SetOnline and RefreshTTL resets
// it. One gateway instance writes entries for connections it holds, any
// instance may read.

const userKeyPrefix = "presence:user:"

func userKey(userID string) string {
	return userKeyPrefix + userID
}

type redisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry creates a Redis-backed presence registry.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) Registry {
	return &redisRegistry{client: client, ttl: ttl}
}

func (r *redisRegistry) SetOnline(ctx context.Context, userID, instanceID, connID string) error {
	data, err := json.Marshal(Connection{
		InstanceID:  instanceID,
		ConnectedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal presence record: %w", err)
	}

	key := userKey(userID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, connID, data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set online: %w", err)
	}
	return nil
}

func (r *redisRegistry) SetOffline(ctx context.Context, userID, connID string) error {
	key := userKey(userID)
	if err := r.client.HDel(ctx, key, connID).Err(); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}

	remaining, err := r.client.HLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to count connections: %w", err)
	}
	if remaining == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete presence entry: %w", err)
		}
	}
	return nil
}

func (r *redisRegistry) RefreshTTL(ctx context.Context, userID string) error {
	return r.client.Expire(ctx, userKey(userID), r.ttl).Err()
}

func (r *redisRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, userKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *redisRegistry) Close() error {
	return r.client.Close()
}
