package model

import "time"

// カートの明細。同じ商品でもサイズ・色が違えば別行
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"column:carrito_id;not null;index" json:"carritoId"`
	ProductID int64     `gorm:"column:producto_id;not null;index" json:"productoId"`
	Quantity  int64     `gorm:"column:cantidad;not null" json:"cantidad"`
	Size      string    `gorm:"column:talla;type:varchar(40)" json:"talla"`
	Color     string    `gorm:"type:varchar(60)" json:"color"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (CartItem) TableName() string { return "carrito_items" }
