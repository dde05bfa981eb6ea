package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// PersistNew runs the exactly-once-effect transaction: insert-or-ignore
// on the dedup key, then the room pointer update only when the insert
// took effect. A duplicate short-circuits with persisted=false and no
// side effects.
func (r *GormMessageRepository) PersistNew(ctx context.Context, msg *domain.Message) (bool, error) {
	l := log.Ctx(ctx)

	model := domain.MessageToModel(msg)
	persisted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "room_id"},
				{Name: "sender_id"},
				{Name: "client_msg_id"},
			},
			DoNothing: true,
		}).Create(model)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return nil
		}
		persisted = true

		now := time.Now().UTC()
		return tx.Model(&domain.RoomModel{}).
			Where("id = ?", msg.RoomID).
			Updates(map[string]interface{}{
				"last_message_id": msg.ID,
				"last_message_at": now,
			}).Error
	})
	if err != nil {
		l.Error().Err(err).
			Str(log.FieldRoomID, msg.RoomID).
			Str(log.FieldClientMsgID, msg.ClientMsgID).
			Msg("failed to persist message")
		return false, err
	}

	if !persisted {
		l.Debug().Str(log.FieldClientMsgID, msg.ClientMsgID).Msg("duplicate message ignored")
		return false, nil
	}

	msg.CreatedAt = model.CreatedAt
	l.Info().
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldRoomID, msg.RoomID).
		Msg("message persisted")
	return true, nil
}

// ListByRoom returns a page of messages in ascending id order. A before
// cursor pages backwards from the newest; the rows are fetched
// descending and reversed so output stays chronological.
func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomID string, q domain.MessageQuery) ([]domain.Message, error) {
	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("room_id = ?", roomID)

	if q.Before != "" {
		query = query.Where("id < ?", q.Before)
	}
	if q.After != "" {
		query = query.Where("id > ?", q.After)
	}

	if q.Before != "" {
		query = query.Order("id DESC")
	} else {
		query = query.Order("id ASC")
	}
	query = query.Limit(q.Limit)

	var models []domain.MessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}

	if q.Before != "" {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	return messages, nil
}
