package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type AnalyticsGormRepository struct {
	db *gorm.DB
}

func NewAnalyticsGormRepository(db *gorm.DB) *AnalyticsGormRepository {
	return &AnalyticsGormRepository{db: db}
}

func (r *AnalyticsGormRepository) OrdersSince(ctx context.Context, since time.Time) ([]repo.OrderStamp, error) {
	var rows []repo.OrderStamp
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("created_at, total").
		Where("created_at >= ?", since).
		Order("created_at asc").
		Scan(&rows).Error
	if err != nil {
		return []repo.OrderStamp{}, err
	}
	return rows, nil
}

// 販売数の多い順。商品が消えていても名前は空で返す
func (r *AnalyticsGormRepository) TopProducts(ctx context.Context, limit int) ([]repo.ProductUnits, error) {
	var rows []repo.ProductUnits
	err := r.db.WithContext(ctx).
		Table("orden_items AS oi").
		Select("oi.producto_id AS product_id, COALESCE(MAX(p.nombre), '') AS name, SUM(oi.cantidad) AS units").
		Joins("LEFT JOIN productos AS p ON p.id = oi.producto_id").
		Group("oi.producto_id").
		Order("units desc").Order("oi.producto_id asc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return []repo.ProductUnits{}, err
	}
	return rows, nil
}

func (r *AnalyticsGormRepository) UserSignupsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("created_at >= ?", since).
		Order("created_at asc").
		Pluck("created_at", &stamps).Error
	if err != nil {
		return []time.Time{}, err
	}
	return stamps, nil
}

func (r *AnalyticsGormRepository) ProductsPerCategory(ctx context.Context) ([]repo.CategoryCount, error) {
	var rows []repo.CategoryCount
	err := r.db.WithContext(ctx).
		Table("productos AS p").
		Select("p.categoria_id AS category_id, COALESCE(MAX(c.nombre), '') AS name, COUNT(*) AS count").
		Joins("LEFT JOIN categorias AS c ON c.id = p.categoria_id").
		Where("p.deleted_at IS NULL").
		Group("p.categoria_id").
		Order("count desc").
		Scan(&rows).Error
	if err != nil {
		return []repo.CategoryCount{}, err
	}
	return rows, nil
}

func (r *AnalyticsGormRepository) Counts(ctx context.Context) (repo.CatalogCounts, error) {
	var c repo.CatalogCounts
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&c.Products).Error; err != nil {
		return repo.CatalogCounts{}, err
	}
	if err := db.Model(&model.Category{}).Count(&c.Categories).Error; err != nil {
		return repo.CatalogCounts{}, err
	}
	if err := db.Model(&model.Order{}).Count(&c.Orders).Error; err != nil {
		return repo.CatalogCounts{}, err
	}
	if err := db.Model(&model.User{}).Count(&c.Users).Error; err != nil {
		return repo.CatalogCounts{}, err
	}
	return c, nil
}
