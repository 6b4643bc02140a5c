package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thinkpath/gatekeeper/internal/model"
)

type gormInviteCodeRepository struct {
	db *gorm.DB
}

func NewGormInviteCodeRepository(db *gorm.DB) InviteCodeRepository {
	return &gormInviteCodeRepository{db: db}
}

func (r *gormInviteCodeRepository) Create(ctx context.Context, code *model.InviteCode) error {
	return translate(r.db.WithContext(ctx).Create(code).Error)
}

func (r *gormInviteCodeRepository) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var inviteCode model.InviteCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&inviteCode).Error; err != nil {
		return nil, translate(err)
	}
	return &inviteCode, nil
}

func (r *gormInviteCodeRepository) GetByCodeForUpdate(ctx context.Context, code string) (*model.InviteCode, error) {
	var inviteCode model.InviteCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&inviteCode).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inviteCode, nil
}

func (r *gormInviteCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, userID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.InviteCode{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{
			"used":            true,
			"used_by_user_id": userID,
			"used_at":         at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

func (r *gormInviteCodeRepository) List(ctx context.Context, limit int) ([]model.InviteCode, error) {
	var codes []model.InviteCode
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
