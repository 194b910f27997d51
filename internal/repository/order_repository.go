package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// 明細変更後に保存し直す金額
type OrderAmounts struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//行ロック付き（トランザクション内で使う）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdateAmounts(ctx context.Context, orderID int64, a OrderAmounts) error
	Delete(ctx context.Context, orderID int64) error

	//決済コールバックの二重処理防止（同じゲートウェイ注文IDなら同じ注文）
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
