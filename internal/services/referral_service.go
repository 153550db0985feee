package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"live-platform/internal/models"
)

var (
	// ErrInvalidReferralCode rejects unknown or deactivated codes.
	ErrInvalidReferralCode = errors.New("invalid referral code")
	// ErrSelfReferral rejects a user applying their own code.
	ErrSelfReferral = errors.New("cannot use your own referral code")
	// ErrAlreadyReferred rejects a second referrer for the same user.
	ErrAlreadyReferred = errors.New("user already has a referrer")
)

// ReferralService owns the referral lifecycle: clicked -> signed_up ->
// active -> rewarded. Transitions are monotonic; an event that targets a
// state the referral already reached is a no-op, which keeps at-least-once
// event delivery safe.
type ReferralService struct {
	db             *gorm.DB
	ledger         *LedgerService
	referrerReward int64
	referredReward int64
}

func NewReferralService(db *gorm.DB, ledger *LedgerService, referrerReward, referredReward int64) *ReferralService {
	return &ReferralService{
		db:             db,
		ledger:         ledger,
		referrerReward: referrerReward,
		referredReward: referredReward,
	}
}

// GetUserReferralCode gets or creates a referral code for a user
func (s *ReferralService) GetUserReferralCode(userID uint) (*models.ReferralCode, error) {
	var code models.ReferralCode
	result := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&code)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return s.generateReferralCode(userID)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &code, nil
}

func (s *ReferralService) generateReferralCode(userID uint) (*models.ReferralCode, error) {
	code, err := randomCode()
	if err != nil {
		return nil, err
	}

	referralCode := models.ReferralCode{
		UserID:   userID,
		Code:     code,
		IsActive: true,
	}
	if err := s.db.Create(&referralCode).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral code: %w", err)
	}

	log.Printf("Generated referral code %s for user %d", code, userID)
	return &referralCode, nil
}

// randomCode generates a random 8-character code
func randomCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:8], nil
}

// RecordClick creates the clicked-stage referral stub for a code the first
// time it is seen on an unauthenticated visit. Later clicks on the same
// code are no-ops.
func (s *ReferralService) RecordClick(code string) error {
	referralCode, err := s.lookupCode(code)
	if err != nil {
		return err
	}

	var existing models.Referral
	err = s.db.Where("referrer_user_id = ? AND referred_user_id IS NULL", referralCode.UserID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	referral := models.Referral{
		ReferralCode:   referralCode.Code,
		ReferrerUserID: referralCode.UserID,
		Status:         models.ReferralStatusClicked,
	}
	if err := s.db.Create(&referral).Error; err != nil {
		return fmt.Errorf("failed to record referral click: %w", err)
	}

	log.Printf("Recorded referral click for code %s (referrer %d)", code, referralCode.UserID)
	return nil
}

// AttributeSignup converts a referral to signed_up when the visit becomes an
// account. Claims the click stub if one exists, otherwise creates the row
// directly at signed_up. A user can only ever have one referrer.
func (s *ReferralService) AttributeSignup(code string, referredUserID uint) error {
	referralCode, err := s.lookupCode(code)
	if err != nil {
		return err
	}
	if referralCode.UserID == referredUserID {
		return ErrSelfReferral
	}

	// Already attributed: advance the existing pair, reject a different referrer.
	var existing models.Referral
	err = s.db.Where("referred_user_id = ?", referredUserID).First(&existing).Error
	if err == nil {
		if existing.ReferrerUserID != referralCode.UserID {
			return ErrAlreadyReferred
		}
		return s.advanceStatus(&existing, models.ReferralStatusSignedUp)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Claim the click stub if the code was seen before signup.
	var stub models.Referral
	err = s.db.Where("referrer_user_id = ? AND referred_user_id IS NULL", referralCode.UserID).
		First(&stub).Error
	switch {
	case err == nil:
		if err := s.db.Model(&stub).Updates(map[string]interface{}{
			"referred_user_id": referredUserID,
			"status":           models.ReferralStatusSignedUp,
		}).Error; err != nil {
			return fmt.Errorf("failed to attribute signup: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		referral := models.Referral{
			ReferralCode:   referralCode.Code,
			ReferrerUserID: referralCode.UserID,
			ReferredUserID: &referredUserID,
			Status:         models.ReferralStatusSignedUp,
		}
		if err := s.db.Create(&referral).Error; err != nil {
			return fmt.Errorf("failed to create referral: %w", err)
		}
	default:
		return err
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", referredUserID).
		Update("referrer_id", referralCode.UserID).Error; err != nil {
		return err
	}

	log.Printf("Applied referral code %s: user %d referred by user %d", code, referredUserID, referralCode.UserID)
	return nil
}

// MarkActive advances the referred user's referral to active once the
// qualifying-activity event arrives. No-op if already active or rewarded.
func (s *ReferralService) MarkActive(referredUserID uint) error {
	var referral models.Referral
	err := s.db.Where("referred_user_id = ?", referredUserID).First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // not a referred user
	}
	if err != nil {
		return err
	}
	return s.advanceStatus(&referral, models.ReferralStatusActive)
}

// GrantRewards advances the pair to rewarded and credits both sides: the
// referred user's gems go to promo and are spendable immediately, the
// referrer's go to pending_referral because they only cash out once the
// referred user transacts (see VestingService). The status flip is a
// conditional update so a re-delivered event cannot credit twice.
func (s *ReferralService) GrantRewards(referrerID, referredUserID uint) error {
	var referral models.Referral
	err := s.db.Where("referrer_user_id = ? AND referred_user_id = ?", referrerID, referredUserID).
		First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidReferralCode
	}
	if err != nil {
		return err
	}
	if referral.Status == models.ReferralStatusRewarded {
		return nil
	}

	// The status flip and both credits commit together: a store failure
	// rolls everything back, so the retry finds the referral un-rewarded
	// and credits cleanly instead of hitting the no-op path with nothing
	// paid out.
	granted := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Referral{}).
			Where("id = ? AND status <> ?", referral.ID, models.ReferralStatusRewarded).
			Updates(map[string]interface{}{
				"status":                models.ReferralStatusRewarded,
				"gems_awarded_referrer": s.referrerReward,
				"gems_awarded_referred": s.referredReward,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark referral rewarded: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil // another delivery of the same event won
		}

		if _, err := s.ledger.credit(tx, referredUserID, models.WalletPromo, s.referredReward,
			models.TransactionReferralReward, fmt.Sprintf("referral signup bonus (code %s)", referral.ReferralCode)); err != nil {
			return err
		}
		if _, err := s.ledger.credit(tx, referrerID, models.WalletPendingReferral, s.referrerReward,
			models.TransactionReferralReward, fmt.Sprintf("pending reward for referring user %d", referredUserID)); err != nil {
			return err
		}

		granted = true
		return nil
	})
	if err != nil {
		return err
	}

	if granted {
		log.Printf("Referral %d rewarded: %d gems pending for referrer %d, %d promo gems for user %d",
			referral.ID, s.referrerReward, referrerID, s.referredReward, referredUserID)
	}
	return nil
}

// ListUnvested returns rewarded referrals whose payout has not vested yet.
func (s *ReferralService) ListUnvested() ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.db.Where("status = ? AND vested = ?", models.ReferralStatusRewarded, false).
		Order("created_at ASC").Find(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

// GetUserReferrals returns all referrals made by a user
func (s *ReferralService) GetUserReferrals(userID uint) ([]models.Referral, error) {
	var referrals []models.Referral
	if err := s.db.Where("referrer_user_id = ?", userID).Preload("ReferredUser").Find(&referrals).Error; err != nil {
		return nil, err
	}
	return referrals, nil
}

// advanceStatus moves a referral forward to target; no-op when the referral
// is already at or past it. The guard lives in the WHERE clause, not in the
// possibly stale in-memory row, so a late-arriving event can never move the
// status backwards.
func (s *ReferralService) advanceStatus(referral *models.Referral, target string) error {
	lower := statusesBelow(target)
	if len(lower) == 0 {
		return nil
	}
	res := s.db.Model(&models.Referral{}).
		Where("id = ? AND status IN ?", referral.ID, lower).
		Update("status", target)
	if res.Error != nil {
		return fmt.Errorf("failed to advance referral status: %w", res.Error)
	}
	// RowsAffected == 0 means already at or past target.
	return nil
}

// statusesBelow returns the statuses ranked strictly before target in the
// lifecycle.
func statusesBelow(target string) []string {
	rank := models.ReferralStatusRank[target]
	var lower []string
	for status, r := range models.ReferralStatusRank {
		if r < rank {
			lower = append(lower, status)
		}
	}
	return lower
}

func (s *ReferralService) lookupCode(code string) (*models.ReferralCode, error) {
	var referralCode models.ReferralCode
	err := s.db.Where("code = ? AND is_active = ?", code, true).First(&referralCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidReferralCode
	}
	if err != nil {
		return nil, err
	}
	return &referralCode, nil
}
