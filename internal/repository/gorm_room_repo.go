package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create inserts a new room record. The caller supplies the minted id.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

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

// UpdateStatus moves a room between statuses with the source status as
// a guard, so a lost race surfaces as ErrNoEffect rather than a silent
// double transition.
func (r *GormRoomRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RoomStatus) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to update room status in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoEffect
	}
	l.Debug().Str(log.FieldRoomID, id).Str("status", string(to)).Msg("room status updated in db")
	return nil
}

// SaveSnapshot captures the live room state into the archived snapshot
// column. Writing only over NULL keeps the first capture stable.
func (r *GormRoomRepository) SaveSnapshot(ctx context.Context, id string, state *domain.RoomState) error {
	l := log.Ctx(ctx)

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ? AND archived_snapshot IS NULL", id).
		Update("archived_snapshot", string(data))
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to save room snapshot in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoEffect
	}
	l.Debug().Str(log.FieldRoomID, id).Msg("room snapshot archived in db")
	return nil
}

// Search retrieves rooms matching the criteria with pagination.
func (r *GormRoomRepository) Search(ctx context.Context, criteria SearchCriteria) ([]domain.Room, int, error) {
	l := log.Ctx(ctx)

	query := r.db.WithContext(ctx).Model(&domain.RoomModel{})
	if criteria.Destination != "" {
		query = query.Where("destination LIKE ?", "%"+criteria.Destination+"%")
	}
	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
	}
	if criteria.OwnerID != "" {
		query = query.Where("owner_id = ?", criteria.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count rooms")
		return nil, 0, err
	}

	var models []domain.RoomModel
	if err := query.Order("created_at DESC").Offset(criteria.Offset).Limit(criteria.Limit).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to search rooms from db")
		return nil, 0, err
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}

	return rooms, int(total), nil
}
