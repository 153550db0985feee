package models

import (
	"time"
)

// User represents a platform account
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Nickname   string    `gorm:"uniqueIndex;not null" json:"nickname"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	IsAdmin    bool      `gorm:"default:false" json:"is_admin"`
	ReferrerID *uint     `gorm:"index" json:"referrer_id,omitempty"`
	Referrer   *User     `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
