package models

import (
	"time"
)

// Customer represents the canonical identity entity. IDs are sequential
// integers because they travel inside the signed credential payload.
type Customer struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	DisplayName  string     `gorm:"column:display_name;not null"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	IsGuest      bool       `gorm:"column:is_guest;not null;default:false"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
