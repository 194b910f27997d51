package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 集計の元データ。日・月の丸めは DB 方言に依存させず usecase 側で行う
type OrderStamp struct {
	CreatedAt time.Time
	Total     decimal.Decimal
}

type ProductUnits struct {
	ProductID int64
	Name      string
	Units     int64
}

type CategoryCount struct {
	CategoryID *int64
	Name       string
	Count      int64
}

type CatalogCounts struct {
	Products   int64
	Categories int64
	Orders     int64
	Users      int64
}

type AnalyticsRepository interface {
	OrdersSince(ctx context.Context, since time.Time) ([]OrderStamp, error)
	TopProducts(ctx context.Context, limit int) ([]ProductUnits, error)
	UserSignupsSince(ctx context.Context, since time.Time) ([]time.Time, error)
	ProductsPerCategory(ctx context.Context) ([]CategoryCount, error)
	Counts(ctx context.Context) (CatalogCounts, error)
}
