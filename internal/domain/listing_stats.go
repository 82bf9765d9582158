package domain

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UnknownCity is the bucket used when the viewer's city is not known.
const UnknownCity = "unknown"

// CityCounts maps a city name to a counter, stored as a json column.
type CityCounts map[string]int64

func (c *CityCounts) Scan(value interface{}) error {
	out, err := scanJSONColumn[map[string]int64](value)
	if err != nil {
		return err
	}
	if out == nil {
		out = map[string]int64{}
	}
	*c = out
	return nil
}

func (c CityCounts) Value() (driver.Value, error) {
	if c == nil {
		c = CityCounts{}
	}
	return datatypes.NewJSONType(map[string]int64(c)).Value()
}

// scanJSONColumn decodes a json column through datatypes.JSONType. NULL and empty values give the zero T.
func scanJSONColumn[T any](value interface{}) (T, error) {
	var col datatypes.JSONType[T]
	switch v := value.(type) {
	case nil:
		return col.Data(), nil
	case []byte:
		if len(v) == 0 {
			return col.Data(), nil
		}
	case string:
		if v == "" {
			return col.Data(), nil
		}
	}
	if err := col.Scan(value); err != nil {
		var zero T
		return zero, err
	}
	return col.Data(), nil
}

// ListingStats holds engagement counters for one listing. Totals never decrease.
// Version guards read-modify-write updates.
type ListingStats struct {
	ListingID      uuid.UUID  `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	Views          int64      `gorm:"column:views;not null;default:0" json:"views"`
	Clicks         int64      `gorm:"column:clicks;not null;default:0" json:"clicks"`
	Shares         int64      `gorm:"column:shares;not null;default:0" json:"shares"`
	ReportingCount int64      `gorm:"column:reporting_count;not null;default:0" json:"reporting_count"`
	ViewsByCity    CityCounts `gorm:"column:views_by_city;type:json" json:"views_by_city"`
	ClicksByCity   CityCounts `gorm:"column:clicks_by_city;type:json" json:"clicks_by_city"`
	SharesByCity   CityCounts `gorm:"column:shares_by_city;type:json" json:"shares_by_city"`
	ReportsByCity  CityCounts `gorm:"column:reports_by_city;type:json" json:"reports_by_city"`
	ViewsHistory   History    `gorm:"column:views_history;type:json" json:"views_history"`
	ClicksHistory  History    `gorm:"column:clicks_history;type:json" json:"clicks_history"`
	SharesHistory  History    `gorm:"column:shares_history;type:json" json:"shares_history"`
	ReportsHistory History    `gorm:"column:reports_history;type:json" json:"reports_history"`
	ConversionRate float64    `gorm:"column:conversion_rate;not null;default:0" json:"conversion_rate"`
	Version        int64      `gorm:"column:version;not null;default:0" json:"-"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (ListingStats) TableName() string {
	return "listing_stats"
}

// NewListingStats seeds zeroed counters with today's bucket in every window.
func NewListingStats(listingID uuid.UUID, now time.Time) *ListingStats {
	return &ListingStats{
		ListingID:      listingID,
		ViewsByCity:    CityCounts{},
		ClicksByCity:   CityCounts{},
		SharesByCity:   CityCounts{},
		ReportsByCity:  CityCounts{},
		ViewsHistory:   NewHistory(now),
		ClicksHistory:  NewHistory(now),
		SharesHistory:  NewHistory(now),
		ReportsHistory: NewHistory(now),
	}
}

func (s *ListingStats) RecordView(city string, now time.Time) {
	s.Views++
	record(&s.ViewsByCity, &s.ViewsHistory, city, now)
	s.recomputeConversion()
}

func (s *ListingStats) RecordClick(city string, now time.Time) {
	s.Clicks++
	record(&s.ClicksByCity, &s.ClicksHistory, city, now)
	s.recomputeConversion()
}

func (s *ListingStats) RecordShare(city string, now time.Time) {
	s.Shares++
	record(&s.SharesByCity, &s.SharesHistory, city, now)
}

func (s *ListingStats) RecordReport(city string, now time.Time) {
	s.ReportingCount++
	record(&s.ReportsByCity, &s.ReportsHistory, city, now)
}

// conversion = clicks / max(views, 1) * 100
func (s *ListingStats) recomputeConversion() {
	views := s.Views
	if views < 1 {
		views = 1
	}
	s.ConversionRate = float64(s.Clicks) / float64(views) * 100
}

func record(byCity *CityCounts, hist *History, city string, now time.Time) {
	if city == "" {
		city = UnknownCity
	}
	if *byCity == nil {
		*byCity = CityCounts{}
	}
	(*byCity)[city]++
	hist.Record(now, 1)
}
