package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"live-platform/internal/models"
)

var (
	// ErrInvalidAmount rejects credits with a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrInvalidWallet rejects operations against an unknown wallet name.
	ErrInvalidWallet = errors.New("unknown wallet")
)

// walletColumns is the closed set of wallet column names. Every dynamic
// column reference in this file is validated against it first.
var walletColumns = map[string]bool{
	models.WalletSpendable:       true,
	models.WalletCashable:        true,
	models.WalletPromo:           true,
	models.WalletPendingReferral: true,
}

// LedgerService is the only writer of wallet balances. Each operation is
// one atomic read-modify-write against the balance row plus exactly one
// appended transaction.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Credit increases the named wallet by amount and appends one transaction.
// The balance row is created on first touch, so a missing user is never an
// error. Returns the new balance of the affected wallet.
func (s *LedgerService) Credit(userID uint, wallet string, amount int64, txType, description string) (int64, error) {
	var newBalance int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		newBalance, err = s.credit(tx, userID, wallet, amount, txType, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// credit is the transactional body of Credit; the referral engine calls it
// inside its own transaction so a reward's status flip and its credits
// commit together.
func (s *LedgerService) credit(tx *gorm.DB, userID uint, wallet string, amount int64, txType, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !walletColumns[wallet] {
		return 0, ErrInvalidWallet
	}

	if err := ensureWalletRow(tx, userID); err != nil {
		return 0, err
	}

	if err := tx.Model(&models.WalletBalance{}).
		Where("user_id = ?", userID).
		UpdateColumn(wallet, gorm.Expr(wallet+" + ?", amount)).Error; err != nil {
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}

	entry := models.Transaction{
		UserID:      userID,
		Type:        txType,
		Wallet:      wallet,
		Amount:      amount,
		Description: description,
		Reference:   uuid.NewString(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}

	var balance models.WalletBalance
	if err := tx.Where("user_id = ?", userID).First(&balance).Error; err != nil {
		return 0, err
	}

	log.Printf("Credited %d gems to user %d wallet %s (%s)", amount, userID, wallet, txType)
	return balance.Get(wallet), nil
}

// MoveBetweenWallets moves up to amount gems from one wallet to another,
// clamped to what the source wallet actually holds so no balance can go
// negative. Appends a single vest transaction for the moved amount.
// Returns the amount actually moved.
func (s *LedgerService) MoveBetweenWallets(userID uint, fromWallet, toWallet string, amount int64) (int64, error) {
	var moved int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = s.moveBetweenWallets(tx, userID, fromWallet, toWallet, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// moveBetweenWallets is the transactional body of MoveBetweenWallets; the
// vesting engine calls it inside its own transaction so the vested flag
// and the wallet move commit together.
func (s *LedgerService) moveBetweenWallets(tx *gorm.DB, userID uint, fromWallet, toWallet string, amount int64) (int64, error) {
	if !walletColumns[fromWallet] || !walletColumns[toWallet] || fromWallet == toWallet {
		return 0, ErrInvalidWallet
	}
	if amount <= 0 {
		return 0, nil
	}

	if err := ensureWalletRow(tx, userID); err != nil {
		return 0, err
	}

	// Clamp to the available balance, then apply a guarded decrement so a
	// concurrent drain of the source wallet cannot push it negative.
	var moved int64
	for attempt := 0; attempt < 3; attempt++ {
		var balance models.WalletBalance
		if err := tx.Where("user_id = ?", userID).First(&balance).Error; err != nil {
			return 0, err
		}

		moved = amount
		if available := balance.Get(fromWallet); available < moved {
			moved = available
		}
		if moved == 0 {
			break
		}

		res := tx.Model(&models.WalletBalance{}).
			Where("user_id = ? AND "+fromWallet+" >= ?", userID, moved).
			Updates(map[string]interface{}{
				fromWallet: gorm.Expr(fromWallet+" - ?", moved),
				toWallet:   gorm.Expr(toWallet+" + ?", moved),
			})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to move gems: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			break
		}
		// Lost the guard to a concurrent writer; re-read and re-clamp.
		moved = 0
	}

	// Nothing moved, nothing to record.
	if moved == 0 {
		return 0, nil
	}

	entry := models.Transaction{
		UserID:      userID,
		Type:        models.TransactionVest,
		Wallet:      toWallet,
		Amount:      moved,
		Description: fmt.Sprintf("moved %d gems from %s to %s", moved, fromWallet, toWallet),
		Reference:   uuid.NewString(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}

	log.Printf("Moved %d gems for user %d: %s -> %s", moved, userID, fromWallet, toWallet)
	return moved, nil
}

// GetBalance returns the user's wallet balances, creating the zero row on
// first touch.
func (s *LedgerService) GetBalance(userID uint) (*models.WalletBalance, error) {
	if err := ensureWalletRow(s.db, userID); err != nil {
		return nil, err
	}
	var balance models.WalletBalance
	if err := s.db.Where("user_id = ?", userID).First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetTransactions returns the user's transaction history, newest first.
func (s *LedgerService) GetTransactions(userID uint) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// ensureWalletRow creates the all-zero balance row for a user if it does
// not exist yet. The conflict clause makes concurrent first credits safe.
func ensureWalletRow(tx *gorm.DB, userID uint) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.WalletBalance{UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("failed to ensure wallet row: %w", err)
	}
	return nil
}
