package repository

import (
	"context"
	"strings"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
)

type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

func (r *UserGormRepository) FindByID(ctx context.Context, userID int64) (model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return model.User{}, translateError(err)
	}
	return u, nil
}

// role が空なら全件
func (r *UserGormRepository) List(ctx context.Context, role string) ([]model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if role = strings.ToUpper(strings.TrimSpace(role)); role != "" {
		q = q.Where("rol = ?", role)
	}

	var users []model.User
	if err := q.Order("id asc").Find(&users).Error; err != nil {
		return []model.User{}, err
	}
	return users, nil
}
