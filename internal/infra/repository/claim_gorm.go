package repository

import (
	"context"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
)

type ClaimGormRepository struct {
	db *gorm.DB
}

func NewClaimGormRepository(db *gorm.DB) *ClaimGormRepository {
	return &ClaimGormRepository{db: db}
}

func (r *ClaimGormRepository) Create(ctx context.Context, c model.Claim) (model.Claim, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Claim{}, translateError(err)
	}
	return c, nil
}

func (r *ClaimGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Claim, error) {
	var cs []model.Claim
	if err := r.db.WithContext(ctx).Where("usuario_id = ?", userID).Order("id desc").Find(&cs).Error; err != nil {
		return []model.Claim{}, err
	}
	return cs, nil
}

func (r *ClaimGormRepository) List(ctx context.Context) ([]model.Claim, error) {
	var cs []model.Claim
	if err := r.db.WithContext(ctx).Order("id desc").Find(&cs).Error; err != nil {
		return []model.Claim{}, err
	}
	return cs, nil
}
