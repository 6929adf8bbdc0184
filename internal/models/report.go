package models

import "gorm.io/gorm"

// Report statuses.
const (
	ReportStatusNew       = "new"
	ReportStatusConfirmed = "confirmed"
	ReportStatusDismissed = "dismissed"
)

// Report is a complaint filed by one stranger against the other during
// or right after a pairing session.
type Report struct {
	gorm.Model

	ReporterID     string `gorm:"index"`
	ReportedUserID string `gorm:"index"`
	SessionID      string `gorm:"index"`
	// Category maps to a penalty weight in config.ReportWeights.
	Category string
	Comment  string
	Status   string `gorm:"default:new"`
}
