package model

import (
	"time"
)

// Listing 房源表，UserID 为房东
type Listing struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"index:idx_owner"`
	Title     string `gorm:"type:varchar(200)"`
	IsDelete  bool   `gorm:"type:tinyint(1);default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Listing) TableName() string {
	return "listings"
}
