package models

import "time"

// User represents an application user.
type User struct {
	Base
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	Name             string     `json:"name"`
	SetupCompleted   bool       `gorm:"default:false" json:"setup_completed"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Budgets []Budget `gorm:"foreignKey:UserID" json:"budgets,omitempty"`
	Goals   []Goal   `gorm:"foreignKey:UserID" json:"goals,omitempty"`
}
