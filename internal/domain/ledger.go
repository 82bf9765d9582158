package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingView is the view dedup ledger. The composite key allows one row per pair, forever.
type ListingView struct {
	ListingID       uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ViewerAccountID uuid.UUID `gorm:"column:viewer_account_id;type:uuid;primaryKey" json:"viewer_account_id"`
	ViewedAt        time.Time `gorm:"column:viewed_at;not null" json:"viewed_at"`
}

func (ListingView) TableName() string {
	return "listing_views"
}

type Favorite struct {
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey" json:"account_id"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey;index" json:"listing_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// LocationCount aggregates listing creations per (country, city).
type LocationCount struct {
	Country      string    `gorm:"column:country;primaryKey" json:"country"`
	City         string    `gorm:"column:city;primaryKey" json:"city"`
	ListingCount int64     `gorm:"column:listing_count;not null;default:0" json:"listing_count"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (LocationCount) TableName() string {
	return "location_counts"
}

// Sequence is a named monotonically increasing counter.
type Sequence struct {
	Name  string `gorm:"column:name;primaryKey" json:"name"`
	Value int64  `gorm:"column:value;not null;default:0" json:"value"`
}

func (Sequence) TableName() string {
	return "sequences"
}
