package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a new user record. The caller supplies the minted id.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	l := log.Ctx(ctx)

	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create user in db")
		return result.Error
	}

	user.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldUserID, user.ID).Msg("user created in db")
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	l := log.Ctx(ctx)

	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldUserID, id).Msg("failed to get user by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateContact applies only the non-nil contact fields.
func (r *GormUserRepository) UpdateContact(ctx context.Context, id string, req *domain.UpdateContactRequest) error {
	l := log.Ctx(ctx)

	updates := map[string]interface{}{}
	if req.QQ != nil {
		updates["qq"] = *req.QQ
	}
	if req.Wechat != nil {
		updates["wechat"] = *req.Wechat
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, id).Msg("failed to update user contact in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
