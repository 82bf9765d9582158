package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportReason string

const (
	ReasonScam             ReportReason = "scam"
	ReasonProhibitedItem   ReportReason = "prohibited_item"
	ReasonWrongCategory    ReportReason = "wrong_category"
	ReasonDuplicate        ReportReason = "duplicate"
	ReasonOffensiveContent ReportReason = "offensive_content"
	ReasonOther            ReportReason = "other"
)

var ReportReasons = []ReportReason{
	ReasonScam,
	ReasonProhibitedItem,
	ReasonWrongCategory,
	ReasonDuplicate,
	ReasonOffensiveContent,
	ReasonOther,
}

func (r ReportReason) Valid() bool {
	for _, v := range ReportReasons {
		if v == r {
			return true
		}
	}
	return false
}

// Report is an abuse report. One per (listing, reporter); immutable once stored.
type Report struct {
	ID                uuid.UUID    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID         uuid.UUID    `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_reports_listing_reporter" json:"listing_id"`
	ReporterAccountID uuid.UUID    `gorm:"column:reporter_account_id;type:uuid;not null;uniqueIndex:idx_reports_listing_reporter;index:idx_reports_reporter_time" json:"reporter_account_id"`
	Reason            ReportReason `gorm:"column:reason;type:varchar(32);not null" json:"reason"`
	City              string       `gorm:"column:city" json:"city"`
	Details           string       `gorm:"column:details;type:text" json:"details,omitempty"`
	ReportedAt        time.Time    `gorm:"column:reported_at;not null;index:idx_reports_reporter_time" json:"reported_at"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
