package model

import "time"

type ClaimStatus string

const (
	ClaimStatusOpen     ClaimStatus = "abierto"
	ClaimStatusResolved ClaimStatus = "resuelto"
)

// 注文に対する問い合わせ（libro de reclamaciones）
type Claim struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64       `gorm:"column:usuario_id;not null;index" json:"usuarioId"`
	OrderID   int64       `gorm:"column:orden_id;not null;index" json:"ordenId"`
	Message   string      `gorm:"column:mensaje;type:text;not null" json:"mensaje"`
	Status    ClaimStatus `gorm:"column:estado;type:varchar(20);not null" json:"estado"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime" json:"createdAt"`
}

func (Claim) TableName() string { return "reclamos" }
