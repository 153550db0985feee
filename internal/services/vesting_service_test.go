package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"live-platform/internal/models"
)

// seedRewardedReferral creates a rewarded, unvested referral with the
// referrer's pending balance already credited.
func seedRewardedReferral(t *testing.T, service *LedgerService, referrerID, referredID uint, awarded, pending int64) *models.Referral {
	t.Helper()

	db := service.db
	db.Create(&models.User{ID: referrerID, Nickname: nickFor(referrerID)})
	db.Create(&models.User{ID: referredID, Nickname: nickFor(referredID)})

	referral := models.Referral{
		ReferralCode:        "TESTCODE",
		ReferrerUserID:      referrerID,
		ReferredUserID:      &referredID,
		Status:              models.ReferralStatusRewarded,
		GemsAwardedReferrer: awarded,
		GemsAwardedReferred: 50,
	}
	if err := db.Create(&referral).Error; err != nil {
		t.Fatalf("failed to create referral: %v", err)
	}

	if pending > 0 {
		if _, err := service.Credit(referrerID, models.WalletPendingReferral, pending,
			models.TransactionReferralReward, "referral reward"); err != nil {
			t.Fatalf("failed to seed pending balance: %v", err)
		}
	}
	return &referral
}

func nickFor(id uint) string {
	return fmt.Sprintf("user-%d", id)
}

func TestVestMovesPendingToCashable(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)

	ledger := NewLedgerService(db)
	service := NewVestingService(db, ledger)
	seedRewardedReferral(t, ledger, 1, 2, 100, 100)

	result, err := service.Vest(1, 2, "first purchase")
	if err != nil {
		t.Fatalf("Vest failed: %v", err)
	}
	if result.AlreadyVested {
		t.Error("expected a fresh vest, got already_vested")
	}
	if result.VestedAmount != 100 {
		t.Errorf("expected vested amount 100, got %d", result.VestedAmount)
	}
	if result.Before.Pending != 100 || result.Before.Cashable != 0 {
		t.Errorf("unexpected before snapshot: %+v", result.Before)
	}
	if result.After.Pending != 0 || result.After.Cashable != 100 {
		t.Errorf("unexpected after snapshot: %+v", result.After)
	}

	var referral models.Referral
	db.Where("referrer_user_id = ? AND referred_user_id = ?", 1, 2).First(&referral)
	if !referral.Vested {
		t.Error("expected referral to be vested")
	}
	if referral.VestedAt == nil {
		t.Error("expected vested_at to be set")
	}
	if referral.VestedReason != "first purchase" {
		t.Errorf("unexpected vested reason: %q", referral.VestedReason)
	}
}

func TestVestTwiceIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)

	ledger := NewLedgerService(db)
	service := NewVestingService(db, ledger)
	seedRewardedReferral(t, ledger, 1, 2, 100, 100)

	if _, err := service.Vest(1, 2, "first purchase"); err != nil {
		t.Fatalf("first Vest failed: %v", err)
	}

	result, err := service.Vest(1, 2, "retry")
	if err != nil {
		t.Fatalf("second Vest failed: %v", err)
	}
	if !result.AlreadyVested {
		t.Error("expected already_vested on second call")
	}
	if result.Before != result.After {
		t.Errorf("second vest changed balances: before %+v after %+v", result.Before, result.After)
	}

	// Final balances match a single vest.
	var balance models.WalletBalance
	db.Where("user_id = ?", 1).First(&balance)
	if balance.PendingReferral != 0 || balance.Cashable != 100 {
		t.Errorf("expected pending 0 / cashable 100, got %d / %d", balance.PendingReferral, balance.Cashable)
	}

	var vestCount int64
	db.Model(&models.Transaction{}).Where("user_id = ? AND type = ?", 1, models.TransactionVest).Count(&vestCount)
	if vestCount != 1 {
		t.Errorf("expected exactly 1 vest transaction, got %d", vestCount)
	}
}

func TestVestClampsWhenAwardExceedsPending(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)

	ledger := NewLedgerService(db)
	service := NewVestingService(db, ledger)
	// Awarded 150 but only 100 pending; the move clamps.
	seedRewardedReferral(t, ledger, 1, 2, 150, 100)

	result, err := service.Vest(1, 2, "first purchase")
	if err != nil {
		t.Fatalf("Vest failed: %v", err)
	}
	if result.VestedAmount != 100 {
		t.Errorf("expected vested amount clamped to 100, got %d", result.VestedAmount)
	}

	var balance models.WalletBalance
	db.Where("user_id = ?", 1).First(&balance)
	if balance.PendingReferral != 0 {
		t.Errorf("expected pending 0, got %d", balance.PendingReferral)
	}

	// The retry reports the amount the winning call actually moved, not the
	// larger award on the referral row.
	retry, err := service.Vest(1, 2, "retry")
	if err != nil {
		t.Fatalf("second Vest failed: %v", err)
	}
	if !retry.AlreadyVested {
		t.Error("expected already_vested on second call")
	}
	if retry.VestedAmount != 100 {
		t.Errorf("expected retry to report 100 vested, got %d", retry.VestedAmount)
	}
}

func TestVestRequiresRewardedReferral(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)

	ledger := NewLedgerService(db)
	service := NewVestingService(db, ledger)

	// No referral at all.
	if _, err := service.Vest(1, 2, "nothing"); !errors.Is(err, ErrReferralNotEligible) {
		t.Errorf("expected ErrReferralNotEligible for missing pair, got %v", err)
	}

	// Referral exists but has not reached rewarded.
	referredID := uint(2)
	db.Create(&models.Referral{
		ReferralCode:   "TESTCODE",
		ReferrerUserID: 1,
		ReferredUserID: &referredID,
		Status:         models.ReferralStatusActive,
	})
	if _, err := service.Vest(1, 2, "too early"); !errors.Is(err, ErrReferralNotEligible) {
		t.Errorf("expected ErrReferralNotEligible for unrewarded referral, got %v", err)
	}
}

func TestVestOnPurchase(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)

	ledger := NewLedgerService(db)
	service := NewVestingService(db, ledger)
	seedRewardedReferral(t, ledger, 1, 2, 100, 100)

	// Non-positive amounts are rejected before any side effect.
	if _, err := service.VestOnPurchase(2, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
	if _, err := service.VestOnPurchase(2, decimal.NewFromInt(-3)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative amount, got %v", err)
	}

	// A purchase by a non-referred user vests nothing and is not an error.
	result, err := service.VestOnPurchase(99, decimal.NewFromFloat(9.99))
	if err != nil {
		t.Fatalf("VestOnPurchase for non-referred user failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for non-referred user, got %+v", result)
	}

	// A purchase by the referred user vests the referral.
	result, err = service.VestOnPurchase(2, decimal.NewFromFloat(4.99))
	if err != nil {
		t.Fatalf("VestOnPurchase failed: %v", err)
	}
	if result == nil || result.VestedAmount != 100 {
		t.Fatalf("expected vest of 100, got %+v", result)
	}

	var referral models.Referral
	db.Where("referred_user_id = ?", 2).First(&referral)
	if !referral.Vested {
		t.Error("expected referral vested after purchase")
	}
}
