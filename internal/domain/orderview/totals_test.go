package orderview_test

import (
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/domain/orderview"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals_OlvaExample(t *testing.T) {
	items := []model.OrderItem{{UnitPrice: decimalFromInt(100), Quantity: 2}}
	shipping := orderview.DetermineShipping(model.Order{ShippingMethod: "olva"})

	got := orderview.ComputeTotals(orderview.LinesFromItems(items), shipping)

	assert.Equal(t, "200.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", got.Shipping.StringFixed(2))
	assert.Equal(t, "220.00", got.Total.StringFixed(2))
}

func TestComputeTotals_SumOfLines(t *testing.T) {
	lines := []orderview.Line{
		{UnitPrice: decimal.RequireFromString("59.90"), Quantity: 3},
		{UnitPrice: decimal.RequireFromString("0.10"), Quantity: 1},
		{UnitPrice: decimal.RequireFromString("12.35"), Quantity: 2},
	}

	got := orderview.ComputeTotals(lines, decimal.RequireFromString("7.5"))

	assert.Equal(t, "204.50", got.Subtotal.StringFixed(2))
	assert.Equal(t, "212.00", got.Total.StringFixed(2))
	assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Shipping)))
}

func TestComputeTotals_Empty(t *testing.T) {
	got := orderview.ComputeTotals(nil, decimal.Zero)
	assert.True(t, got.Subtotal.IsZero())
	assert.True(t, got.Total.IsZero())
}

func TestRecomputeOrderTotals_IgnoresStoredTotal(t *testing.T) {
	o := model.Order{ShippingMethod: "olva", Subtotal: decimalFromInt(999), Total: decimalFromInt(999)}
	items := []model.OrderItem{
		{UnitPrice: decimalFromInt(50), Quantity: 1},
		{UnitPrice: decimalFromInt(25), Quantity: 2},
	}

	got := orderview.RecomputeOrderTotals(o, items)
	assert.Equal(t, "100.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "120.00", got.Total.StringFixed(2))
}
