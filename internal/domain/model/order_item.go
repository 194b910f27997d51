package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。価格・名前は購入時点のスナップショット
type OrderItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64           `gorm:"column:orden_id;not null;index" json:"ordenId"`
	ProductID   int64           `gorm:"column:producto_id;not null;index" json:"productoId"`
	Quantity    int64           `gorm:"column:cantidad;not null" json:"cantidad"`
	UnitPrice   decimal.Decimal `gorm:"column:precio;type:decimal(12,2);not null" json:"precio"`
	ProductName string          `gorm:"column:nombre_producto;type:varchar(255)" json:"nombreProducto,omitempty"`
	Size        string          `gorm:"column:talla;type:varchar(40)" json:"talla,omitempty"`
	Color       string          `gorm:"type:varchar(60)" json:"color,omitempty"`
	Image       string          `gorm:"column:imagen;type:varchar(500)" json:"imagen,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
}

func (OrderItem) TableName() string { return "orden_items" }
