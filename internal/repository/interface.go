package repository

import (
	"context"
	"errors"

	"github.com/parley-chat/parley/internal/domain"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
)

// RoomRepository manages room rows. The last-message pointer is only
// mutated through MessageRepository.PersistNew.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Room, error)
}

// MemberRepository manages (room, user) membership rows.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.RoomMember) error
	Exists(ctx context.Context, roomID, userID string) (bool, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.RoomMember, error)
	RoomIDsByUser(ctx context.Context, userID string) ([]string, error)
	UpdateReadCursor(ctx context.Context, roomID, userID, lastReadMessageID string) error
}

// MessageRepository persists and reads immutable messages.
type MessageRepository interface {
	// PersistNew stores the message and advances the owning room's
	// last-message pointer in a single transaction. A conflict on the
	// (room, sender, client_msg_id) dedup key is a successful no-op and
	// reported as persisted=false with no pointer update.
	PersistNew(ctx context.Context, msg *domain.Message) (persisted bool, err error)

	// ListByRoom returns a catch-up page in ascending id order.
	ListByRoom(ctx context.Context, roomID string, q domain.MessageQuery) ([]domain.Message, error)
}
