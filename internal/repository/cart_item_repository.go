package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 同じ商品・サイズ・色の行を特定するキー
type CartLineKey struct {
	ProductID int64
	Size      string
	Color     string
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByKey(ctx context.Context, cartID int64, key CartLineKey) (model.CartItem, error)
	// 同一キーは数量を加算、なければ作成
	Upsert(ctx context.Context, cartID int64, key CartLineKey, addQty int64) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
}
