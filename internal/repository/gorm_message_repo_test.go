package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedRoom(t *testing.T, db *gorm.DB) *domain.Room {
	t.Helper()

	room := &domain.Room{ID: uuid.NewString(), Name: "general"}
	require.NoError(t, NewGormRoomRepository(db).Create(context.Background(), room))
	return room
}

func newMessage(roomID string) *domain.Message {
	return &domain.Message{
		ID:          ulid.Make().String(),
		RoomID:      roomID,
		SenderID:    uuid.NewString(),
		ClientMsgID: uuid.NewString(),
		Type:        domain.MessageTypeText,
		Content:     "hello",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPersistNewStoresAndAdvancesRoomPointer(t *testing.T) {
	db := newTestDB(t)
	room := seedRoom(t, db)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	msg := newMessage(room.ID)
	persisted, err := repo.PersistNew(ctx, msg)
	require.NoError(t, err)
	require.True(t, persisted)

	got, err := NewGormRoomRepository(db).GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageID)
	require.Equal(t, msg.ID, *got.LastMessageID)
	require.NotNil(t, got.LastMessageAt)
}

func TestPersistNewDuplicateIsNoOp(t *testing.T) {
	db := newTestDB(t)
	room := seedRoom(t, db)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	msg := newMessage(room.ID)
	persisted, err := repo.PersistNew(ctx, msg)
	require.NoError(t, err)
	require.True(t, persisted)

	// Redelivery carries the same dedup triple but a fresh ULID.
	dup := *msg
	dup.ID = ulid.Make().String()
	persisted, err = repo.PersistNew(ctx, &dup)
	require.NoError(t, err)
	require.False(t, persisted)

	var count int64
	require.NoError(t, db.Model(&domain.MessageModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// The pointer still names the first message.
	got, err := NewGormRoomRepository(db).GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, msg.ID, *got.LastMessageID)
}

func TestPersistNewSameClientMsgIDDifferentSender(t *testing.T) {
	db := newTestDB(t)
	room := seedRoom(t, db)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	clientMsgID := uuid.NewString()

	a := newMessage(room.ID)
	a.ClientMsgID = clientMsgID
	persisted, err := repo.PersistNew(ctx, a)
	require.NoError(t, err)
	require.True(t, persisted)

	b := newMessage(room.ID)
	b.ClientMsgID = clientMsgID
	persisted, err = repo.PersistNew(ctx, b)
	require.NoError(t, err)
	require.True(t, persisted)
}

func TestListByRoomPagination(t *testing.T) {
	db := newTestDB(t)
	room := seedRoom(t, db)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	ids := make([]string, 5)
	for i := range ids {
		msg := newMessage(room.ID)
		persisted, err := repo.PersistNew(ctx, msg)
		require.NoError(t, err)
		require.True(t, persisted)
		ids[i] = msg.ID
	}

	// Newest page, backwards from the end.
	page, err := repo.ListByRoom(ctx, room.ID, domain.MessageQuery{Before: ids[4], Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID)
	require.Equal(t, ids[3], page[1].ID)

	// Forward from a cursor.
	page, err = repo.ListByRoom(ctx, room.ID, domain.MessageQuery{After: ids[1], Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.Equal(t, ids[2], page[0].ID)
	require.Equal(t, ids[4], page[2].ID)

	// Unbounded query is ascending.
	page, err = repo.ListByRoom(ctx, room.ID, domain.MessageQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 5)
	require.Equal(t, ids[0], page[0].ID)

	// Other rooms never bleed in.
	page, err = repo.ListByRoom(ctx, uuid.NewString(), domain.MessageQuery{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, page)
}
