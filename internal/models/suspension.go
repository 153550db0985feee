package models

import (
	"time"
)

// SuspendedBySystem marks suspensions issued automatically by the
// report-threshold escalation rather than by an admin.
const SuspendedBySystem = "system"

// Suspension blocks a user's account. At most one active suspension
// exists per user at a time; ExpiresAt nil means indefinite.
type Suspension struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Reason      string     `gorm:"type:text;not null" json:"reason"`
	SuspendedBy string     `gorm:"size:50;not null" json:"suspended_by"`
	IsActive    bool       `gorm:"not null;default:true;index" json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Suspension) TableName() string {
	return "suspensions"
}
