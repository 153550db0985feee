package models

import (
	"time"
)

// Report categories. Closed enum; anything else is rejected before any write.
const (
	ReportCategoryHarassment = "harassment"
	ReportCategoryHateSpeech = "hate_speech"
	ReportCategoryNudity     = "nudity"
	ReportCategoryViolence   = "violence"
	ReportCategorySpam       = "spam"
	ReportCategoryUnderage   = "underage"
	ReportCategoryScam       = "scam"
	ReportCategoryOther      = "other"
)

// ReportCategories is the set of accepted report categories.
var ReportCategories = map[string]bool{
	ReportCategoryHarassment: true,
	ReportCategoryHateSpeech: true,
	ReportCategoryNudity:     true,
	ReportCategoryViolence:   true,
	ReportCategorySpam:       true,
	ReportCategoryUnderage:   true,
	ReportCategoryScam:       true,
	ReportCategoryOther:      true,
}

// Report is one abuse report filed by a user against another user.
// A (reporter, reported) pair may file at most one report per 24 hours.
type Report struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ReporterID  uint      `gorm:"not null;index" json:"reporter_id"`
	Reporter    *User     `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	ReportedID  uint      `gorm:"not null;index" json:"reported_id"`
	Reported    *User     `gorm:"foreignKey:ReportedID" json:"reported,omitempty"`
	RoomID      *uint     `gorm:"index" json:"room_id,omitempty"`
	Category    string    `gorm:"size:30;not null" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}
