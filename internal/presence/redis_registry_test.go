package presence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// These tests exercise real Redis TTL semantics and require a running
// instance. Set REDIS_ADDR (e.g. localhost:6379) to enable them.
func newTestRegistry(t *testing.T, ttl time.Duration) Registry {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return &redisRegistry{client: client, ttl: ttl}
}

func TestSetOnlineThenOnline(t *testing.T) {
	reg := newTestRegistry(t, time.Minute)
	ctx := context.Background()

	online, err := reg.IsOnline(ctx, "user-a")
	require.NoError(t, err)
	require.False(t, online)

	require.NoError(t, reg.SetOnline(ctx, "user-a", "gateway-1", "conn-1"))

	online, err = reg.IsOnline(ctx, "user-a")
	require.NoError(t, err)
	require.True(t, online)
}

func TestSetOfflineLastConnectionDeletesEntry(t *testing.T) {
	reg := newTestRegistry(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, reg.SetOnline(ctx, "user-a", "gateway-1", "conn-1"))
	require.NoError(t, reg.SetOnline(ctx, "user-a", "gateway-2", "conn-2"))

	require.NoError(t, reg.SetOffline(ctx, "user-a", "conn-1"))
	online, err := reg.IsOnline(ctx, "user-a")
	require.NoError(t, err)
	require.True(t, online, "one connection remains")

	require.NoError(t, reg.SetOffline(ctx, "user-a", "conn-2"))
	online, err = reg.IsOnline(ctx, "user-a")
	require.NoError(t, err)
	require.False(t, online, "offline immediately, not after TTL")
}

func TestEntryExpiresWithoutRefresh(t *testing.T) {
	reg := newTestRegistry(t, time.Second)
	ctx := context.Background()

	require.NoError(t, reg.SetOnline(ctx, "user-a", "gateway-1", "conn-1"))

	time.Sleep(1200 * time.Millisecond)

	online, err := reg.IsOnline(ctx, "user-a")
	require.NoError(t, err)
	require.False(t, online)
}

func TestRefreshExtendsTTL(t *testing.T) {
	reg := newTestRegistry(t, time.Second)
	ctx := context.Background()

	require.NoError(t, reg.SetOnline(ctx, "user-a", "gateway-1", "conn-1"))

	time.Sleep(600 * time.Millisecond)
	require.NoError(t, reg.RefreshTTL(ctx, "user-a"))
	time.Sleep(600 * time.Millisecond)

	online, err := reg.IsOnline(ctx, "user-a")
	require.NoError(t, err)
	require.True(t, online)
}
