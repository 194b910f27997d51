package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/orderview"
	"storefront/internal/logger"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
}

func NewAdminOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditRepo: auditRepo}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminAddOrderItemInput struct {
	OrderID   int64
	ProductID int64
	Quantity  int64 // 0 なら 1
	Size      string
	Color     string
}

type AdminUpdateOrderItemInput struct {
	Quantity int64
}

type AdminOrderListOutput struct {
	Items []orderview.OrderSummary `json:"items"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

// 明細を触ったあとの結果（再計算後の金額つき）
type OrderItemMutationOutput struct {
	Item   *model.OrderItem `json:"item,omitempty"`
	Totals orderview.Totals `json:"totales"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = string(st)
	}

	var out AdminOrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(ctx, "orders.list_admin", err)
		}

		items := make([]orderview.OrderSummary, 0, len(orders))
		for _, o := range orders {
			items = append(items, orderview.Summarize(o))
		}
		out = AdminOrderListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// 注文詳細（正規化済み）
func (u *AdminOrderUsecase) Detail(ctx context.Context, orderID int64) (orderview.DisplayOrder, error) {
	if orderID <= 0 {
		return orderview.DisplayOrder{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out orderview.DisplayOrder
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(ctx, "orders.find", err)
		}

		out, err = loadDisplayOrder(ctx, r, o)
		return err
	})
	if err != nil {
		return orderview.DisplayOrder{}, err
	}
	return out, nil
}

// ステータス更新（pendiente → completado | enviado。終端からは動かせない）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得（明細編集と競合しないようロック）
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(ctx, "orders.find", err)
		}

		// すでに同じなら何もしない（200）
		current, _ := model.ParseOrderStatus(string(o.Status))
		if current == newStatus {
			return nil
		}
		// 終端ガード
		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusConflict, "cannot change "+string(current)+" order")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return dbError(ctx, "orders.update_status", err)
		}

		// ★監査ログ（UPDATE_ORDER_STATUS）
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON(map[string]any{"estado": o.Status}),
			AfterJSON:    auditJSON(map[string]any{"estado": newStatus}),
		})
	})
}

// 注文削除（明細ごと）
func (u *AdminOrderUsecase) Delete(ctx context.Context, actorUserID int64, orderID int64) error {
	if actorUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(ctx, "orders.find", err)
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return dbError(ctx, "order_items.delete_by_order", err)
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return dbError(ctx, "orders.delete", err)
		}

		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionDeleteOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON(map[string]any{"estado": o.Status, "total": o.Total}),
			AfterJSON:    "{}",
		})
	})
}

// 明細一覧（orderID 指定なしなら全件）
func (u *AdminOrderUsecase) ListItems(ctx context.Context, orderID *int64) ([]model.OrderItem, error) {
	if orderID != nil && *orderID <= 0 {
		return []model.OrderItem{}, NewHTTPError(http.StatusBadRequest, "invalid ordenId")
	}

	var items []model.OrderItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		items, err = r.OrderItems().List(ctx, orderID)
		if err != nil {
			return dbError(ctx, "order_items.list", err)
		}
		return nil
	})
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

// 明細追加。同じ商品がすでにある・終端の注文・非公開商品は不可
func (u *AdminOrderUsecase) AddItem(ctx context.Context, actorUserID int64, in AdminAddOrderItemInput) (OrderItemMutationOutput, error) {
	if actorUserID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid ordenId")
	}
	if in.ProductID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid productoId")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusBadRequest, "cantidad must be >= 1")
	}

	var out OrderItemMutationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findEditableOrder(ctx, r, in.OrderID)
		if err != nil {
			return err
		}

		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return dbError(ctx, "products.find", err)
		}
		if !p.IsActive {
			return NewHTTPError(http.StatusBadRequest, "product is not active")
		}

		exists, err := r.OrderItems().ExistsProduct(ctx, o.ID, p.ID)
		if err != nil {
			return dbError(ctx, "order_items.exists", err)
		}
		if exists {
			return NewHTTPError(http.StatusConflict, "product already in order")
		}

		size := strings.TrimSpace(in.Size)
		if size == "" && len(p.SizeOptions()) > 0 {
			size = p.SizeOptions()[0]
		}
		color := strings.TrimSpace(in.Color)
		if color == "" && len(p.ColorOptions()) > 0 {
			color = p.ColorOptions()[0]
		}

		//単価は追加時点の商品価格
		item, err := r.OrderItems().Create(ctx, model.OrderItem{
			OrderID:     o.ID,
			ProductID:   p.ID,
			Quantity:    in.Quantity,
			UnitPrice:   p.Price,
			ProductName: p.Name,
			Size:        size,
			Color:       color,
			Image:       p.Images.First(),
		})
		if err != nil {
			return dbError(ctx, "order_items.create", err)
		}

		totals, err := recomputeOrder(ctx, r, o)
		if err != nil {
			return err
		}

		out = OrderItemMutationOutput{Item: &item, Totals: totals}
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionAddOrderItem,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   "{}",
			AfterJSON:    auditJSON(map[string]any{"itemId": item.ID, "productoId": p.ID, "cantidad": item.Quantity, "total": totals.Total}),
		})
	})
	if err != nil {
		return OrderItemMutationOutput{}, err
	}
	return out, nil
}

// 明細の数量変更
func (u *AdminOrderUsecase) UpdateItem(ctx context.Context, actorUserID int64, itemID int64, in AdminUpdateOrderItemInput) (OrderItemMutationOutput, error) {
	if actorUserID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusBadRequest, "cantidad must be >= 1")
	}

	var out OrderItemMutationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(ctx, "order_items.find", err)
		}

		o, err := findEditableOrder(ctx, r, item.OrderID)
		if err != nil {
			return err
		}

		before := item.Quantity
		if err := r.OrderItems().UpdateQuantity(ctx, itemID, in.Quantity); err != nil {
			return dbError(ctx, "order_items.update_quantity", err)
		}
		item.Quantity = in.Quantity

		totals, err := recomputeOrder(ctx, r, o)
		if err != nil {
			return err
		}

		out = OrderItemMutationOutput{Item: &item, Totals: totals}
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateOrderItem,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   auditJSON(map[string]any{"itemId": itemID, "cantidad": before}),
			AfterJSON:    auditJSON(map[string]any{"itemId": itemID, "cantidad": in.Quantity, "total": totals.Total}),
		})
	})
	if err != nil {
		return OrderItemMutationOutput{}, err
	}
	return out, nil
}

// 明細削除。最後の1件は消せない
func (u *AdminOrderUsecase) DeleteItem(ctx context.Context, actorUserID int64, itemID int64) (OrderItemMutationOutput, error) {
	if actorUserID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return OrderItemMutationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderItemMutationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(ctx, "order_items.find", err)
		}

		o, err := findEditableOrder(ctx, r, item.OrderID)
		if err != nil {
			return err
		}

		n, err := r.OrderItems().CountByOrderID(ctx, o.ID)
		if err != nil {
			return dbError(ctx, "order_items.count", err)
		}
		if n <= 1 {
			return NewHTTPError(http.StatusConflict, "the order must keep at least one product")
		}

		if err := r.OrderItems().Delete(ctx, itemID); err != nil {
			// ロック待ちの間に同じ明細が消された
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return dbError(ctx, "order_items.delete", err)
		}

		totals, err := recomputeOrder(ctx, r, o)
		if err != nil {
			return err
		}

		out = OrderItemMutationOutput{Totals: totals}
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionDeleteOrderItem,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   auditJSON(map[string]any{"itemId": itemID, "productoId": item.ProductID, "cantidad": item.Quantity}),
			AfterJSON:    auditJSON(map[string]any{"total": totals.Total}),
		})
	})
	if err != nil {
		return OrderItemMutationOutput{}, err
	}
	return out, nil
}

// 監査ログ一覧
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, dbError(ctx, "audit_logs.list", err)
	}
	return logs, nil
}

// 明細を編集できる注文か（存在する・終端でない）
// 注文行をロックするので、件数チェックと再計算はコミットまで他と混ざらない
func findEditableOrder(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, dbError(ctx, "orders.find", err)
	}
	if o.Status.IsTerminal() {
		return model.Order{}, NewHTTPError(http.StatusConflict, "order is "+string(o.Status)+" and cannot be edited")
	}
	return o, nil
}

// 明細から subtotal/envio/total を出し直して保存する（保存済み total は使わない）
func recomputeOrder(ctx context.Context, r repo.TxRepos, o model.Order) (orderview.Totals, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return orderview.Totals{}, dbError(ctx, "order_items.list", err)
	}

	totals := orderview.RecomputeOrderTotals(o, items)
	if err := r.Orders().UpdateAmounts(ctx, o.ID, repo.OrderAmounts{
		Subtotal:     totals.Subtotal,
		ShippingCost: totals.Shipping,
		Total:        totals.Total,
	}); err != nil {
		return orderview.Totals{}, dbError(ctx, "orders.update_amounts", err)
	}

	logger.FromContext(ctx).Info("order totals recomputed",
		zap.Int64("order_id", o.ID),
		zap.String("subtotal", totals.Subtotal.StringFixed(2)),
		zap.String("envio", totals.Shipping.StringFixed(2)),
		zap.String("total", totals.Total.StringFixed(2)),
	)
	return totals, nil
}

// 注文＋明細＋商品を読み、表示用に正規化する
func loadDisplayOrder(ctx context.Context, r repo.TxRepos, o model.Order) (orderview.DisplayOrder, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return orderview.DisplayOrder{}, dbError(ctx, "order_items.list", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return orderview.DisplayOrder{}, dbError(ctx, "products.find_by_ids", err)
	}

	return orderview.Normalize(o, items, products), nil
}

func writeAudit(ctx context.Context, r repo.TxRepos, log model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if err := r.AuditLogs().Create(ctx, log); err != nil {
		return dbError(ctx, "audit_logs.create", err)
	}
	return nil
}

func auditJSON(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// 期間パラメータでtime.Timeが必要なら、handlerでtime.Parseしてここに入れる
func ParseDateParam(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, true
	}
	return nil, false
}
