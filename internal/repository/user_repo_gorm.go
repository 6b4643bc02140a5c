package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"thinkpath/gatekeeper/internal/model"
)

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepository) GetBySubject(ctx context.Context, subject string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("subject = ?", subject).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CompleteOnboarding only ever moves the flag forward; repeating it is a no-op.
func (r *gormUserRepository) CompleteOnboarding(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("onboarding_completed", true).
		Error)
}
