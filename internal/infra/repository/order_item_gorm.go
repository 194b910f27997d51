package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return err
	}
	return nil
}

func (r *OrderItemGormRepository) Create(ctx context.Context, item model.OrderItem) (model.OrderItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.OrderItem{}, translateError(err)
	}
	return item, nil
}

func (r *OrderItemGormRepository) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	var it model.OrderItem
	if err := r.db.WithContext(ctx).First(&it, itemID).Error; err != nil {
		return model.OrderItem{}, translateError(err)
	}
	return it, nil
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("orden_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

func (r *OrderItemGormRepository) List(ctx context.Context, orderID *int64) ([]model.OrderItem, error) {
	q := r.db.WithContext(ctx).Model(&model.OrderItem{})
	if orderID != nil {
		q = q.Where("orden_id = ?", *orderID)
	}

	var items []model.OrderItem
	if err := q.Order("id asc").Find(&items).Error; err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

func (r *OrderItemGormRepository) CountByOrderID(ctx context.Context, orderID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).Where("orden_id = ?", orderID).Count(&n).Error
	return n, err
}

func (r *OrderItemGormRepository) ExistsProduct(ctx context.Context, orderID int64, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("orden_id = ? AND producto_id = ?", orderID, productID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderItemGormRepository) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Update("cantidad", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) Delete(ctx context.Context, itemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.OrderItem{}, itemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Where("orden_id = ?", orderID).Delete(&model.OrderItem{}).Error
}
