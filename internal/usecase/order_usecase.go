package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/domain/orderview"
	repo "storefront/internal/repository"
)

// 購入者本人の注文
type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type MyOrdersOutput struct {
	Items []orderview.OrderSummary `json:"items"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

// 新しい順
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (MyOrdersOutput, error) {
	if userID <= 0 {
		return MyOrdersOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return MyOrdersOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return MyOrdersOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out MyOrdersOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return dbError(ctx, "orders.list_by_user", err)
		}
		items := make([]orderview.OrderSummary, 0, len(orders))
		for _, o := range orders {
			items = append(items, orderview.Summarize(o))
		}
		out = MyOrdersOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return MyOrdersOutput{}, err
	}
	return out, nil
}

// 他人の注文は存在しない扱い（404）
func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (orderview.DisplayOrder, error) {
	if userID <= 0 {
		return orderview.DisplayOrder{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return orderview.DisplayOrder{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out orderview.DisplayOrder
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		out, err = loadDisplayOrder(ctx, r, o)
		return err
	})
	if err != nil {
		return orderview.DisplayOrder{}, err
	}
	return out, nil
}

// 自分の pendiente の注文だけ取り消せる
func (u *OrderUsecase) DeleteMyOrder(ctx context.Context, userID int64, orderID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if st, _ := model.ParseOrderStatus(string(o.Status)); st != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "only pending orders can be deleted")
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return dbError(ctx, "order_items.delete_by_order", err)
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return dbError(ctx, "orders.delete", err)
		}
		return nil
	})
}

func findOwnOrder(ctx context.Context, r repo.TxRepos, userID int64, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, dbError(ctx, "orders.find", err)
	}
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return o, nil
}
