package models

import (
	"time"
)

// Wallet column names. This is the closed set of balances a user holds;
// the ledger validates against it before building any dynamic SQL.
const (
	WalletSpendable       = "spendable"
	WalletCashable        = "cashable"
	WalletPromo           = "promo"
	WalletPendingReferral = "pending_referral"
)

// WalletBalance holds a user's gem balances, one row per user.
// Every field stays >= 0; the ledger clamps or rejects anything that
// would drive a balance negative.
type WalletBalance struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User            *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Spendable       int64     `gorm:"not null;default:0" json:"spendable"`
	Cashable        int64     `gorm:"not null;default:0" json:"cashable"`
	Promo           int64     `gorm:"not null;default:0" json:"promo"`
	PendingReferral int64     `gorm:"not null;default:0" json:"pending_referral"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (WalletBalance) TableName() string {
	return "wallet_balances"
}

// Get returns the balance of the named wallet, 0 for an unknown name.
func (w WalletBalance) Get(wallet string) int64 {
	switch wallet {
	case WalletSpendable:
		return w.Spendable
	case WalletCashable:
		return w.Cashable
	case WalletPromo:
		return w.Promo
	case WalletPendingReferral:
		return w.PendingReferral
	}
	return 0
}
