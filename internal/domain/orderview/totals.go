package orderview

import (
	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 金額計算用の1行（単価×数量）
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int64
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"envio"`
	Total    decimal.Decimal `json:"total"`
}

// 保存済みの total は信用せず、常に明細から計算し直す
func ComputeTotals(lines []Line, shipping decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

func LinesFromItems(items []model.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

// 明細＋注文から送料込みの合計を出す（明細変更後の再計算用）
func RecomputeOrderTotals(o model.Order, items []model.OrderItem) Totals {
	return ComputeTotals(LinesFromItems(items), DetermineShipping(o))
}
