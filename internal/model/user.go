package model

import (
	"time"
)

// User 账号服务维护的用户表，消息服务只读
type User struct {
	ID         uint64 `gorm:"primaryKey"`
	FirstName  string `gorm:"type:varchar(50)"`
	LastName   string `gorm:"type:varchar(50)"`
	Email      string `gorm:"type:varchar(120);uniqueIndex:idx_email"`
	ProfilePic string `gorm:"type:varchar(255)"`
	IsDelete   bool   `gorm:"type:tinyint(1);default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (User) TableName() string {
	return "users"
}
