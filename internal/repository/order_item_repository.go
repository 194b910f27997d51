package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	Create(ctx context.Context, item model.OrderItem) (model.OrderItem, error)
	FindByID(ctx context.Context, itemID int64) (model.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	//orderID が nil なら全件
	List(ctx context.Context, orderID *int64) ([]model.OrderItem, error)
	CountByOrderID(ctx context.Context, orderID int64) (int64, error)
	ExistsProduct(ctx context.Context, orderID int64, productID int64) (bool, error)
	UpdateQuantity(ctx context.Context, itemID int64, qty int64) error
	Delete(ctx context.Context, itemID int64) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
