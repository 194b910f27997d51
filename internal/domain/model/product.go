package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"column:nombre;type:varchar(255);not null" json:"nombre"`
	Description string          `gorm:"column:descripcion;type:text" json:"descripcion"`
	Price       decimal.Decimal `gorm:"column:precio;type:decimal(12,2);not null" json:"precio"`
	Stock       int64           `gorm:"not null" json:"stock"`

	//カンマ区切り（"negro,blanco"）
	Colors string `gorm:"column:color;type:varchar(255)" json:"color"`
	Sizes  string `gorm:"column:talla;type:varchar(255)" json:"talla"`

	CategoryID *int64     `gorm:"column:categoria_id;index" json:"categoriaId,omitempty"`
	Images     StringList `gorm:"column:imagen;type:text" json:"imagen"`
	IsActive   bool       `gorm:"column:activo;not null;default:false" json:"activo"`
	IsFeatured bool       `gorm:"column:seleccionado;not null;default:false" json:"seleccionado"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string { return "productos" }

func (p Product) ColorOptions() []string { return SplitOptions(p.Colors) }
func (p Product) SizeOptions() []string  { return SplitOptions(p.Sizes) }

// カンマ区切りの選択肢を分割（空要素は捨てる）
func SplitOptions(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:nombre;type:varchar(120);not null;uniqueIndex" json:"nombre"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}

func (Category) TableName() string { return "categorias" }
