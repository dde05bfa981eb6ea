package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create creates a new room.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	room.ID = uuid.New().String()

	model := domain.RoomToModel(room)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByIDs retrieves rooms by id, newest first.
func (r *GormRoomRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Room, error) {
	l := log.Ctx(ctx)

	if len(ids) == 0 {
		return nil, nil
	}

	var models []domain.RoomModel
	result := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to list rooms from db")
		return nil, result.Error
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}
