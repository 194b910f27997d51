package model

import "time"

type Role string

const (
	RoleUser     Role = "USER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

// 認証は外部。ここでは参照と集計にだけ使う
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:nombre;type:varchar(255)" json:"nombre"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"column:rol;type:varchar(20);not null;default:'USER'" json:"rol"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
}

func (User) TableName() string { return "usuarios" }
