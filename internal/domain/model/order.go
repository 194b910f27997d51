package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusCompleted OrderStatus = "completado"
	OrderStatusShipped   OrderStatus = "enviado"
)

// 表記ゆれ（"Enviado" など）を吸収する
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendiente", "pending":
		return OrderStatusPending, true
	case "completado", "completed":
		return OrderStatusCompleted, true
	case "enviado", "shipped":
		return OrderStatusShipped, true
	}
	return "", false
}

// 終端ステータスなら明細の編集・ステータス変更は不可
func (s OrderStatus) IsTerminal() bool {
	st, ok := ParseOrderStatus(string(s))
	if !ok {
		return false
	}
	return st != OrderStatusPending
}

type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"usuarioId"`

	FirstName string `gorm:"type:varchar(120)" json:"nombre,omitempty"`
	LastName  string `gorm:"type:varchar(120)" json:"apellido,omitempty"`
	Email     string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone     string `gorm:"type:varchar(30)" json:"telefono,omitempty"`

	//住所（ubigeo）
	Country    string `gorm:"type:varchar(60)" json:"pais,omitempty"`
	Department string `gorm:"type:varchar(120)" json:"departamento,omitempty"`
	Province   string `gorm:"type:varchar(120)" json:"provincia,omitempty"`
	District   string `gorm:"type:varchar(120)" json:"distrito,omitempty"`
	Address    string `gorm:"type:varchar(255)" json:"direccion,omitempty"`
	Reference  string `gorm:"type:varchar(255)" json:"referencia,omitempty"`

	//古いフロントが入れていた列
	LegacyShippingMethod string `gorm:"column:metodo_envio;type:varchar(40)" json:"metodoEnvio,omitempty"`
	ShippingMethod       string `gorm:"type:varchar(40)" json:"shippingMethod,omitempty"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	ShippingCost decimal.Decimal `gorm:"column:envio;type:decimal(12,2);not null;default:0" json:"envio"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`

	Status OrderStatus `gorm:"column:estado;type:varchar(20);not null;index" json:"estado"`

	TransactionID   string     `gorm:"type:varchar(120)" json:"transactionId,omitempty"`
	PaymentStatus   string     `gorm:"type:varchar(40)" json:"paymentStatus,omitempty"`
	PaymentDate     *time.Time `json:"paymentDate,omitempty"`
	//空の行（古い注文）は除いた一意制約。決済コールバックの二重登録を防ぐ
	GatewayOrderID  string     `gorm:"column:order_id_izipay;type:varchar(80);uniqueIndex:idx_ordenes_order_id_izipay,where:order_id_izipay <> ''" json:"orderIdIzipay,omitempty"`
	PaymentMethod   string     `gorm:"type:varchar(60)" json:"paymentMethod,omitempty"`
	PaymentResponse string     `gorm:"type:text" json:"paymentResponse,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (Order) TableName() string { return "ordenes" }
