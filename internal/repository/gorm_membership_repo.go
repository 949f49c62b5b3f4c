package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/log"
)

// GormMembershipRepository implements MembershipRepository using GORM.
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GORM-based membership ledger.
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Append inserts one join-event row. The ledger is insert-only.
func (r *GormMembershipRepository) Append(ctx context.Context, entry *domain.Membership) error {
	l := log.Ctx(ctx)

	model := domain.MembershipToModel(entry)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to append membership entry in db")
		return result.Error
	}

	entry.JoinedAt = model.JoinedAt
	l.Debug().
		Str(log.FieldMembershipID, entry.ID).
		Str(log.FieldRoomID, entry.RoomID).
		Str(log.FieldUserID, entry.UserID).
		Msg("membership entry appended in db")
	return nil
}

// ListByUser retrieves a user's join events, most recent first.
func (r *GormMembershipRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Membership, error) {
	l := log.Ctx(ctx)

	var models []domain.MembershipModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Offset(offset).Limit(limit).
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to list membership entries from db")
		return nil, result.Error
	}

	entries := make([]domain.Membership, len(models))
	for i, model := range models {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// CountByUser counts a user's join events.
func (r *GormMembershipRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	l := log.Ctx(ctx)

	var count int64
	result := r.db.WithContext(ctx).Model(&domain.MembershipModel{}).
		Where("user_id = ?", userID).
		Count(&count)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to count membership entries")
	}
	return int(count), result.Error
}
