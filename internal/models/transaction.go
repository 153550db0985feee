package models

import (
	"time"
)

// Transaction types. Closed set; every ledger mutation writes exactly one row.
const (
	TransactionCredit         = "credit"
	TransactionVest           = "vest"
	TransactionAdjustment     = "adjustment"
	TransactionReferralReward = "referral_reward"
)

// Transaction is the append-only record of a single wallet mutation.
// Rows are immutable once written; the sum of a user's transactions per
// wallet reconciles with the wallet's current balance.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type        string    `gorm:"size:50;not null;index" json:"type"`
	Wallet      string    `gorm:"size:30;not null" json:"wallet"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Description string    `gorm:"type:text" json:"description"`
	Reference   string    `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
