package repository

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	//管理画面用（非公開も含む）
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
	//同じカテゴリを優先したおすすめ
	ListRecommended(ctx context.Context, p model.Product, limit int) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	//在庫が足りなければ ErrInsufficientStock
	DecrementStock(ctx context.Context, id int64, qty int64) error
}

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
}
