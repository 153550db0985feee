package services

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"live-platform/internal/models"
)

func newSuspensionFixture(t *testing.T) (*SuspensionService, *gorm.DB) {
	db := setupTestDB(t)
	resetTables(t, db)
	return NewSuspensionService(db, 7, 3, 24), db
}

// backdatedReport inserts a report with an explicit created_at, bypassing
// the submission path so window scenarios can be staged.
func backdatedReport(t *testing.T, db *gorm.DB, reporterID, reportedID uint, age time.Duration) {
	t.Helper()
	report := models.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		Category:   models.ReportCategorySpam,
		CreatedAt:  time.Now().Add(-age),
	}
	if err := db.Create(&report).Error; err != nil {
		t.Fatalf("failed to create backdated report: %v", err)
	}
}

func TestThirdDistinctReporterTriggersSuspension(t *testing.T) {
	service, db := newSuspensionFixture(t)

	reported := uint(10)
	backdatedReport(t, db, 1, reported, 6*24*time.Hour) // day 1
	backdatedReport(t, db, 2, reported, 6*24*time.Hour) // day 1

	// Third distinct reporter inside the window crosses the threshold.
	outcome, err := service.SubmitReport(3, reported, nil, models.ReportCategoryHarassment, "spamming the room")
	if err != nil {
		t.Fatalf("SubmitReport failed: %v", err)
	}
	if outcome.ReportCount != 3 {
		t.Errorf("expected 3 distinct reporters, got %d", outcome.ReportCount)
	}
	if !outcome.Suspended {
		t.Error("expected the third report to create a suspension")
	}

	var suspension models.Suspension
	if err := db.Where("user_id = ? AND is_active = ?", reported, true).First(&suspension).Error; err != nil {
		t.Fatalf("expected active suspension: %v", err)
	}
	if suspension.SuspendedBy != models.SuspendedBySystem {
		t.Errorf("expected system suspension, got %q", suspension.SuspendedBy)
	}
	if suspension.ExpiresAt != nil {
		t.Error("expected indefinite suspension")
	}

	// A fourth distinct reporter does not create a second suspension.
	outcome, err = service.SubmitReport(4, reported, nil, models.ReportCategorySpam, "")
	if err != nil {
		t.Fatalf("fourth SubmitReport failed: %v", err)
	}
	if outcome.Suspended {
		t.Error("expected no new suspension while one is active")
	}
	var count int64
	db.Model(&models.Suspension{}).Where("user_id = ?", reported).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 suspension, got %d", count)
	}
}

func TestReportsOutsideWindowDoNotCount(t *testing.T) {
	service, db := newSuspensionFixture(t)

	reported := uint(10)
	backdatedReport(t, db, 1, reported, 9*24*time.Hour) // outside the 7-day window
	backdatedReport(t, db, 2, reported, 6*24*time.Hour)

	outcome, err := service.SubmitReport(3, reported, nil, models.ReportCategorySpam, "")
	if err != nil {
		t.Fatalf("SubmitReport failed: %v", err)
	}
	if outcome.ReportCount != 2 {
		t.Errorf("expected 2 in-window reporters, got %d", outcome.ReportCount)
	}
	if outcome.Suspended {
		t.Error("expected no suspension with only 2 in-window reporters")
	}
}

func TestRepeatReportsFromSameReporterCountOnce(t *testing.T) {
	service, db := newSuspensionFixture(t)

	reported := uint(10)
	// Reporter 1 has already filed twice; reporter 2 once. All older than
	// the 24h pair cooldown.
	backdatedReport(t, db, 1, reported, 5*24*time.Hour)
	backdatedReport(t, db, 1, reported, 2*24*time.Hour)
	backdatedReport(t, db, 2, reported, 2*24*time.Hour)

	outcome, err := service.SubmitReport(1, reported, nil, models.ReportCategorySpam, "")
	if err != nil {
		t.Fatalf("SubmitReport failed: %v", err)
	}
	if outcome.ReportCount != 2 {
		t.Errorf("expected 2 distinct reporters, got %d", outcome.ReportCount)
	}
	if outcome.Suspended {
		t.Error("expected no suspension from 2 distinct reporters")
	}
}

func TestSelfReportRejected(t *testing.T) {
	service, db := newSuspensionFixture(t)

	_, err := service.SubmitReport(5, 5, nil, models.ReportCategorySpam, "")
	if !errors.Is(err, ErrSelfReport) {
		t.Errorf("expected ErrSelfReport, got %v", err)
	}

	var count int64
	db.Model(&models.Report{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no report stored, got %d", count)
	}
}

func TestInvalidCategoryRejected(t *testing.T) {
	service, _ := newSuspensionFixture(t)

	_, err := service.SubmitReport(1, 2, nil, "rudeness", "")
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestDuplicateReportCooldown(t *testing.T) {
	service, db := newSuspensionFixture(t)

	if _, err := service.SubmitReport(1, 2, nil, models.ReportCategorySpam, ""); err != nil {
		t.Fatalf("first SubmitReport failed: %v", err)
	}

	// Same pair inside 24h.
	_, err := service.SubmitReport(1, 2, nil, models.ReportCategoryHarassment, "again")
	if !errors.Is(err, ErrDuplicateReport) {
		t.Errorf("expected ErrDuplicateReport, got %v", err)
	}

	// Same reporter against a different user is fine.
	if _, err := service.SubmitReport(1, 3, nil, models.ReportCategorySpam, ""); err != nil {
		t.Fatalf("report against different user failed: %v", err)
	}

	// After the cooldown the pair may report again: age the stored report.
	db.Model(&models.Report{}).Where("reporter_id = ? AND reported_id = ?", 1, 2).
		Update("created_at", time.Now().Add(-25*time.Hour))
	if _, err := service.SubmitReport(1, 2, nil, models.ReportCategorySpam, ""); err != nil {
		t.Fatalf("post-cooldown report failed: %v", err)
	}
}

func TestDeactivateExpired(t *testing.T) {
	service, db := newSuspensionFixture(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	db.Create(&models.Suspension{UserID: 1, Reason: "expired", SuspendedBy: models.SuspendedBySystem, IsActive: true, ExpiresAt: &past})
	db.Create(&models.Suspension{UserID: 2, Reason: "current", SuspendedBy: models.SuspendedBySystem, IsActive: true, ExpiresAt: &future})
	db.Create(&models.Suspension{UserID: 3, Reason: "indefinite", SuspendedBy: models.SuspendedBySystem, IsActive: true})

	n, err := service.DeactivateExpired()
	if err != nil {
		t.Fatalf("DeactivateExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deactivation, got %d", n)
	}

	for userID, wantActive := range map[uint]bool{1: false, 2: true, 3: true} {
		suspension, err := service.GetActiveSuspension(userID)
		if err != nil {
			t.Fatalf("GetActiveSuspension(%d) failed: %v", userID, err)
		}
		if (suspension != nil) != wantActive {
			t.Errorf("user %d: expected active=%v, got %v", userID, wantActive, suspension != nil)
		}
	}
}
