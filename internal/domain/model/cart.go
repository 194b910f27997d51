package model

import "time"

// 1ユーザーにつきカートは1つ
type Cart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"column:usuario_id;not null;uniqueIndex" json:"usuarioId"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (Cart) TableName() string { return "carritos" }
