package membership

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/repository"
	"github.com/parley-chat/parley/pkg/database"
)

// fakeCache is an in-process Cache with fault injection.
type fakeCache struct {
	entries     map[string]bool
	getErr      error
	setErr      error
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]bool{}}
}

func (c *fakeCache) Get(ctx context.Context, roomID, userID string) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	v, ok := c.entries[roomID+"/"+userID]
	if !ok {
		return false, ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, roomID, userID string, isMember bool) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[roomID+"/"+userID] = isMember
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, roomID, userID string) error {
	delete(c.entries, roomID+"/"+userID)
	c.invalidated = append(c.invalidated, roomID+"/"+userID)
	return nil
}

func (c *fakeCache) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *fakeCache) {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db,
		&domain.RoomModel{},
		&domain.RoomMemberModel{},
		&domain.MessageModel{},
	))

	cache := newFakeCache()
	svc := NewService(
		repository.NewGormRoomRepository(db),
		repository.NewGormMemberRepository(db),
		cache,
	)
	return svc, cache
}

func TestCreateRoomAutoJoinsCreator(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "alice", "general")
	require.NoError(t, err)
	require.NotEmpty(t, room.ID)

	isMember, err := svc.IsMember(ctx, room.ID, "alice")
	require.NoError(t, err)
	require.True(t, isMember)
}

func TestJoinUnknownRoom(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Join(context.Background(), uuid.NewString(), "bob")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinTwice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "alice", "general")
	require.NoError(t, err)

	_, err = svc.Join(ctx, room.ID, "bob")
	require.NoError(t, err)

	_, err = svc.Join(ctx, room.ID, "bob")
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestJoinInvalidatesCacheEntry(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "alice", "general")
	require.NoError(t, err)

	// A pre-join check caches the negative.
	isMember, err := svc.IsMember(ctx, room.ID, "bob")
	require.NoError(t, err)
	require.False(t, isMember)

	_, err = svc.Join(ctx, room.ID, "bob")
	require.NoError(t, err)
	require.Contains(t, cache.invalidated, room.ID+"/bob")

	// Immediately visible, no TTL wait.
	isMember, err = svc.IsMember(ctx, room.ID, "bob")
	require.NoError(t, err)
	require.True(t, isMember)
}

func TestIsMemberReadsThroughAndCaches(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "alice", "general")
	require.NoError(t, err)

	isMember, err := svc.IsMember(ctx, room.ID, "alice")
	require.NoError(t, err)
	require.True(t, isMember)
	require.Equal(t, map[string]bool{room.ID + "/alice": true}, cache.entries)

	// A stale positive is served from cache without touching the store.
	cache.entries[room.ID+"/carol"] = true
	isMember, err = svc.IsMember(ctx, room.ID, "carol")
	require.NoError(t, err)
	require.True(t, isMember)
}

func TestIsMemberDegradesOnCacheFailure(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "alice", "general")
	require.NoError(t, err)

	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	isMember, err := svc.IsMember(ctx, room.ID, "alice")
	require.NoError(t, err)
	require.True(t, isMember)
}

func TestMyRoomsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	rooms, err := svc.MyRooms(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestUpdateReadCursorUnknownMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "alice", "general")
	require.NoError(t, err)

	err = svc.UpdateReadCursor(ctx, room.ID, "bob", "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.ErrorIs(t, err, repository.ErrMemberNotFound)
}
