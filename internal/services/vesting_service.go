package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"live-platform/internal/models"
)

// ErrReferralNotEligible means no rewarded, unvested referral exists for the pair.
var ErrReferralNotEligible = errors.New("no rewarded referral for this pair")

// errAlreadyVested aborts the vesting transaction when a concurrent caller
// flipped the flag first. Never escapes Vest.
var errAlreadyVested = errors.New("referral already vested")

// WalletSnapshot captures the two wallets a vest touches.
type WalletSnapshot struct {
	Pending  int64 `json:"pending"`
	Cashable int64 `json:"cashable"`
}

// VestResult reports what a vest call did.
type VestResult struct {
	VestedAmount  int64          `json:"vested_amount"`
	AlreadyVested bool           `json:"already_vested"`
	Before        WalletSnapshot `json:"before"`
	After         WalletSnapshot `json:"after"`
}

// VestingService releases a referrer's pending_referral gems into cashable
// once the referred user transacts. The vested flag is flipped with a
// conditional update, so two concurrent triggers resolve to exactly one
// wallet move; flag and move commit in the same storage transaction.
type VestingService struct {
	db     *gorm.DB
	ledger *LedgerService
}

func NewVestingService(db *gorm.DB, ledger *LedgerService) *VestingService {
	return &VestingService{db: db, ledger: ledger}
}

// Vest moves the referral's awarded gems from the referrer's
// pending_referral wallet into cashable, clamped to what pending actually
// holds. Vesting an already-vested referral is a soft success: the call
// reports AlreadyVested and leaves every balance unchanged.
func (s *VestingService) Vest(referrerID, referredID uint, reason string) (*VestResult, error) {
	var referral models.Referral
	err := s.db.Where("referrer_user_id = ? AND referred_user_id = ?", referrerID, referredID).
		First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferralNotEligible
	}
	if err != nil {
		return nil, err
	}
	if referral.Vested {
		return s.alreadyVestedResult(referrerID, referral.ID)
	}
	if referral.Status != models.ReferralStatusRewarded {
		return nil, ErrReferralNotEligible
	}

	before, err := s.snapshot(referrerID)
	if err != nil {
		return nil, err
	}

	result := &VestResult{Before: before}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Single-writer gate: only the caller that flips vested false -> true
		// proceeds to move gems.
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND vested = ?", referral.ID, false).
			Updates(map[string]interface{}{
				"vested":        true,
				"vested_at":     time.Now(),
				"vested_reason": reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark referral vested: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errAlreadyVested
		}

		moved, err := s.ledger.moveBetweenWallets(tx, referrerID,
			models.WalletPendingReferral, models.WalletCashable, referral.GemsAwardedReferrer)
		if err != nil {
			return err
		}

		// Record what actually moved (the clamp may have shrunk it) so an
		// idempotent retry reports the same number as this call.
		if err := tx.Model(&models.Referral{}).Where("id = ?", referral.ID).
			Update("gems_vested", moved).Error; err != nil {
			return fmt.Errorf("failed to record vested amount: %w", err)
		}
		result.VestedAmount = moved
		return nil
	})
	if errors.Is(err, errAlreadyVested) {
		return s.alreadyVestedResult(referrerID, referral.ID)
	}
	if err != nil {
		return nil, err
	}

	result.After, err = s.snapshot(referrerID)
	if err != nil {
		return nil, err
	}

	log.Printf("Vested %d gems for referrer %d (referred user %d): %s",
		result.VestedAmount, referrerID, referredID, reason)
	return result, nil
}

// VestOnPurchase is the payment-provider entry point: a completed purchase
// by a referred user vests their referral. Purchases by users without a
// rewarded referral are normal and vest nothing.
func (s *VestingService) VestOnPurchase(purchaserID uint, amount decimal.Decimal) (*VestResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var referral models.Referral
	err := s.db.Where("referred_user_id = ? AND status = ? AND vested = ?",
		purchaserID, models.ReferralStatusRewarded, false).First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("purchase of %s by referred user %d", amount.StringFixed(2), purchaserID)
	return s.Vest(referral.ReferrerUserID, purchaserID, reason)
}

// alreadyVestedResult re-reads the referral so the reported amount is the
// one the winning vest actually moved, not the possibly larger award.
func (s *VestingService) alreadyVestedResult(referrerID uint, referralID uint) (*VestResult, error) {
	var referral models.Referral
	if err := s.db.First(&referral, referralID).Error; err != nil {
		return nil, err
	}
	snap, err := s.snapshot(referrerID)
	if err != nil {
		return nil, err
	}
	return &VestResult{
		VestedAmount:  referral.GemsVested,
		AlreadyVested: true,
		Before:        snap,
		After:         snap,
	}, nil
}

func (s *VestingService) snapshot(userID uint) (WalletSnapshot, error) {
	balance, err := s.ledger.GetBalance(userID)
	if err != nil {
		return WalletSnapshot{}, err
	}
	return WalletSnapshot{
		Pending:  balance.PendingReferral,
		Cashable: balance.Cashable,
	}, nil
}
