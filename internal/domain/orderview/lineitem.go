package orderview

import (
	"strings"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productoId"`
	Name      string          `json:"nombre"`
	Image     string          `json:"imagen"`
	Size      string          `json:"talla"`
	Color     string          `json:"color"`
	ColorHex  string          `json:"colorHex,omitempty"`
	UnitPrice decimal.Decimal `json:"precio"`
	Quantity  int64           `json:"cantidad"`
	Amount    decimal.Decimal `json:"importe"`
}

// 明細自身 > 商品マスタ > 決済metadataの明細、の順で最初に値があるものを採用する
func ResolveLineItem(item model.OrderItem, product *model.Product, o model.Order) LineItem {
	return resolveLineItem(item, product, ExtractMetadata(o).Items())
}

func resolveLineItem(item model.OrderItem, product *model.Product, metaItems []MetadataItem) LineItem {
	var pName, pImage, pSize, pColor string
	if product != nil {
		pName = product.Name
		pImage = product.Images.First()
		pSize = firstOf(product.SizeOptions())
		pColor = firstOf(product.ColorOptions())
	}

	meta := findMetadataItem(metaItems, item.ProductID)

	color := pick(item.Color, pColor, meta.String("color", "colour"))
	return LineItem{
		ID:        item.ID,
		ProductID: item.ProductID,
		Name:      pick(item.ProductName, pName, meta.String("nombreProducto", "nombre", "name")),
		Image:     pick(item.Image, pImage, meta.String("imagen", "image", "imagenUrl", "imageUrl")),
		Size:      pick(item.Size, pSize, meta.String("talla", "size")),
		Color:     color,
		ColorHex:  ColorHex(color),
		UnitPrice: item.UnitPrice,
		Quantity:  item.Quantity,
		Amount:    item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)),
	}
}

func pick(candidates ...string) string {
	if s := firstNonEmpty(candidates...); s != "" {
		return s
	}
	return NotAvailable
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
