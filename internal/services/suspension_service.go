package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"live-platform/internal/models"
)

var (
	// ErrSelfReport rejects a user reporting themselves.
	ErrSelfReport = errors.New("cannot report yourself")
	// ErrDuplicateReport rejects a second report for the same pair inside the cooldown.
	ErrDuplicateReport = errors.New("you already reported this user recently")
	// ErrInvalidCategory rejects categories outside the closed set.
	ErrInvalidCategory = errors.New("invalid report category")
)

// ReportOutcome is what a report submission produced.
type ReportOutcome struct {
	ReportCount int64 `json:"report_count"` // distinct reporters in the window
	Suspended   bool  `json:"suspended"`    // whether this call created a suspension
}

// SuspensionService stores abuse reports and escalates them: once enough
// distinct reporters flag the same user inside the rolling window, it
// issues a single system suspension. It is the only writer of suspensions.
type SuspensionService struct {
	db         *gorm.DB
	windowDays int
	threshold  int
	cooldown   time.Duration
}

func NewSuspensionService(db *gorm.DB, windowDays, threshold, cooldownHours int) *SuspensionService {
	return &SuspensionService{
		db:         db,
		windowDays: windowDays,
		threshold:  threshold,
		cooldown:   time.Duration(cooldownHours) * time.Hour,
	}
}

// SubmitReport validates and stores a report, then re-evaluates the
// distinct-reporter count for the reported user. Threshold crossings are
// idempotent: while a suspension is already active, more reports change
// nothing.
func (s *SuspensionService) SubmitReport(reporterID, reportedID uint, roomID *uint, category, description string) (*ReportOutcome, error) {
	if reporterID == reportedID {
		return nil, ErrSelfReport
	}
	if !models.ReportCategories[category] {
		return nil, ErrInvalidCategory
	}

	var recent int64
	err := s.db.Model(&models.Report{}).
		Where("reporter_id = ? AND reported_id = ? AND created_at > ?",
			reporterID, reportedID, time.Now().Add(-s.cooldown)).
		Count(&recent).Error
	if err != nil {
		return nil, err
	}
	if recent > 0 {
		return nil, ErrDuplicateReport
	}

	report := models.Report{
		ReporterID:  reporterID,
		ReportedID:  reportedID,
		RoomID:      roomID,
		Category:    category,
		Description: description,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	count, err := s.distinctReporters(reportedID)
	if err != nil {
		return nil, err
	}

	outcome := &ReportOutcome{ReportCount: count}
	if count >= int64(s.threshold) {
		created, err := s.suspend(reportedID, count)
		if err != nil {
			return nil, err
		}
		outcome.Suspended = created
	}

	log.Printf("Report filed against user %d by user %d (%s); %d distinct reporters in window",
		reportedID, reporterID, category, count)
	return outcome, nil
}

// distinctReporters counts unique reporters of a user inside the trailing
// window. Repeat reports from the same reporter count once.
func (s *SuspensionService) distinctReporters(reportedID uint) (int64, error) {
	since := time.Now().AddDate(0, 0, -s.windowDays)
	var count int64
	err := s.db.Model(&models.Report{}).
		Where("reported_id = ? AND created_at > ?", reportedID, since).
		Distinct("reporter_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// suspend creates the system suspension unless one is already active.
// Returns whether this call created it.
func (s *SuspensionService) suspend(userID uint, reporterCount int64) (bool, error) {
	var active int64
	err := s.db.Model(&models.Suspension{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&active).Error
	if err != nil {
		return false, err
	}
	if active > 0 {
		return false, nil
	}

	suspension := models.Suspension{
		UserID:      userID,
		Reason:      fmt.Sprintf("reported by %d distinct users within %d days", reporterCount, s.windowDays),
		SuspendedBy: models.SuspendedBySystem,
		IsActive:    true,
	}
	if err := s.db.Create(&suspension).Error; err != nil {
		return false, fmt.Errorf("failed to create suspension: %w", err)
	}

	log.Printf("User %d suspended: %s", userID, suspension.Reason)
	return true, nil
}

// GetActiveSuspension returns the user's active suspension, or nil.
func (s *SuspensionService) GetActiveSuspension(userID uint) (*models.Suspension, error) {
	var suspension models.Suspension
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&suspension).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &suspension, nil
}

// DeactivateExpired flips is_active off for suspensions whose expiry has
// passed. Indefinite suspensions (null expires_at) are never touched.
func (s *SuspensionService) DeactivateExpired() (int64, error) {
	res := s.db.Model(&models.Suspension{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, time.Now()).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
