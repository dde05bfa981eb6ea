package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/pkg/log"
)

// GormMemberRepository implements MemberRepository using GORM.
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GORM-based member repository.
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// Create inserts a membership row.
func (r *GormMemberRepository) Create(ctx context.Context, member *domain.RoomMember) error {
	l := log.Ctx(ctx)

	model := &domain.RoomMemberModel{
		RoomID: member.RoomID,
		UserID: member.UserID,
	}
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldRoomID, member.RoomID).
			Str(log.FieldUserID, member.UserID).
			Msg("failed to create room member in db")
		return result.Error
	}

	member.JoinedAt = model.JoinedAt
	return nil
}

// Exists reports whether a membership row exists for (room, user).
func (r *GormMemberRepository) Exists(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.RoomMemberModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// ListByRoom retrieves all members of a room.
func (r *GormMemberRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.RoomMember, error) {
	var models []domain.RoomMemberModel
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	members := make([]domain.RoomMember, len(models))
	for i, model := range models {
		members[i] = *model.ToDomain()
	}
	return members, nil
}

// RoomIDsByUser retrieves the room ids the user belongs to.
func (r *GormMemberRepository) RoomIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&domain.RoomMemberModel{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// UpdateReadCursor moves the member's last-read pointer. The pointer is
// client-driven; no ordering check against the room's messages is made.
func (r *GormMemberRepository) UpdateReadCursor(ctx context.Context, roomID, userID, lastReadMessageID string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.RoomMemberModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("last_read_message_id", lastReadMessageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}

	l.Debug().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, userID).
		Str(log.FieldMessageID, lastReadMessageID).
		Msg("read cursor updated")
	return nil
}
