package models

import (
	"time"
)

// Referral statuses, in lifecycle order. Transitions only move forward;
// re-delivered events land on a no-op.
const (
	ReferralStatusClicked  = "clicked"
	ReferralStatusSignedUp = "signed_up"
	ReferralStatusActive   = "active"
	ReferralStatusRewarded = "rewarded"
)

// ReferralStatusRank maps a status to its position in the lifecycle.
var ReferralStatusRank = map[string]int{
	ReferralStatusClicked:  0,
	ReferralStatusSignedUp: 1,
	ReferralStatusActive:   2,
	ReferralStatusRewarded: 3,
}

// ReferralCode represents a unique referral code for a user
type ReferralCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Code      string     `gorm:"uniqueIndex;size:20;not null" json:"code"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

// Referral tracks one (referrer, referred) pair from click through reward.
// ReferredUserID is null while the referral is only a click. Vested flips
// false -> true exactly once and never reverts, independent of Status.
type Referral struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ReferralCode        string     `gorm:"size:20;not null;index" json:"referral_code"`
	ReferrerUserID      uint       `gorm:"not null;index:idx_referral_pair,unique" json:"referrer_user_id"`
	Referrer            *User      `gorm:"foreignKey:ReferrerUserID" json:"referrer,omitempty"`
	ReferredUserID      *uint      `gorm:"index:idx_referral_pair,unique" json:"referred_user_id,omitempty"`
	ReferredUser        *User      `gorm:"foreignKey:ReferredUserID" json:"referred_user,omitempty"`
	Status              string     `gorm:"size:20;not null;default:clicked;index" json:"status"`
	GemsAwardedReferrer int64      `gorm:"not null;default:0" json:"gems_awarded_referrer"`
	GemsAwardedReferred int64      `gorm:"not null;default:0" json:"gems_awarded_referred"`
	Vested              bool       `gorm:"not null;default:false;index" json:"vested"`
	GemsVested          int64      `gorm:"not null;default:0" json:"gems_vested"`
	VestedAt            *time.Time `json:"vested_at,omitempty"`
	VestedReason        string     `gorm:"size:255" json:"vested_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
