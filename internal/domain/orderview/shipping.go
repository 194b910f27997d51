package orderview

import (
	"strings"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

const (
	ShippingOlva   = "olva"
	ShippingPickup = "recojo"
)

var shippingRates = map[string]decimal.Decimal{
	ShippingOlva:   decimal.NewFromInt(20),
	ShippingPickup: decimal.Zero,
}

// 比較用に正規化（前後空白除去＋小文字）
func NormalizeShippingMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}

// 配送方法ごとの固定料金。未知の方法は false
func ShippingCostForMethod(method string) (decimal.Decimal, bool) {
	cost, ok := shippingRates[NormalizeShippingMethod(method)]
	return cost, ok
}

func IsKnownShippingMethod(method string) bool {
	_, ok := shippingRates[NormalizeShippingMethod(method)]
	return ok
}

// metadata.shippingMethod > metadata.metodoEnvio > shippingMethod列 > metodo_envio列
func ResolveShippingMethod(o model.Order) string {
	return resolveShippingMethod(o, ExtractMetadata(o))
}

func resolveShippingMethod(o model.Order, meta Metadata) string {
	if m := meta.String("shippingMethod", "metodoEnvio"); m != "" {
		return NormalizeShippingMethod(m)
	}
	if m := NormalizeShippingMethod(o.ShippingMethod); m != "" {
		return m
	}
	return NormalizeShippingMethod(o.LegacyShippingMethod)
}

// 送料: 注文に保存された正の値 > metadata.shippingCost > 配送方法の固定料金 > 0
func DetermineShipping(o model.Order) decimal.Decimal {
	return determineShipping(o, ExtractMetadata(o))
}

func determineShipping(o model.Order, meta Metadata) decimal.Decimal {
	if o.ShippingCost.IsPositive() {
		return o.ShippingCost
	}
	if cost, ok := meta.Decimal("shippingCost"); ok && !cost.IsNegative() {
		return cost
	}
	if cost, ok := ShippingCostForMethod(resolveShippingMethod(o, meta)); ok {
		return cost
	}
	return decimal.Zero
}
