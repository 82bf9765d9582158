package domain

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	StatusPending   ListingStatus = "pending"
	StatusApproved  ListingStatus = "approved"
	StatusRefused   ListingStatus = "refused"
	StatusSuspended ListingStatus = "suspended"
	StatusSold      ListingStatus = "sold"
	StatusExpired   ListingStatus = "expired"
)

// transitions lists the allowed moderation edges. States missing from the map are terminal.
var transitions = map[ListingStatus][]ListingStatus{
	StatusPending:  {StatusApproved, StatusRefused, StatusSuspended},
	StatusApproved: {StatusSuspended, StatusSold, StatusExpired},
}

// CanTransition reports whether a listing may move from one status to another.
func CanTransition(from, to ListingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MediaRefs stores storage keys as a JSON array column and marshals to a JSON array in API responses.
type MediaRefs []string

// Scan implements sql.Scanner for reading from DB (json column).
func (m *MediaRefs) Scan(value interface{}) error {
	out, err := scanJSONColumn[[]string](value)
	if err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*m = out
	return nil
}

// Value implements driver.Valuer for writing to DB.
func (m MediaRefs) Value() (driver.Value, error) {
	if m == nil {
		m = MediaRefs{}
	}
	return datatypes.NewJSONType([]string(m)).Value()
}

// Listing is a marketplace post. Created by the creation workflow, mutated only by moderation.
type Listing struct {
	ID              uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	HumanID         string        `gorm:"column:human_id;type:varchar(32);not null;uniqueIndex" json:"human_id"`
	OwnerAccountID  uuid.UUID     `gorm:"column:owner_account_id;type:uuid;not null;index" json:"owner_account_id"`
	Category        string        `gorm:"column:category;not null" json:"category"`
	Subcategory     string        `gorm:"column:subcategory" json:"subcategory"`
	Country         string        `gorm:"column:country;not null" json:"country"`
	City            string        `gorm:"column:city;not null" json:"city"`
	Address         string        `gorm:"column:address" json:"address"`
	MediaRefs       MediaRefs     `gorm:"column:media_refs;type:json" json:"media_refs"`
	Title           string        `gorm:"column:title;not null" json:"title"`
	Slug            string        `gorm:"column:slug;not null;index" json:"slug"`
	Description     string        `gorm:"column:description;type:text" json:"description"`
	Price           float64       `gorm:"column:price;type:decimal(18,2);not null;default:0" json:"price"`
	Status          ListingStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	IsActive        bool          `gorm:"column:is_active;not null;default:false" json:"is_active"`
	IsSold          bool          `gorm:"column:is_sold;not null;default:false" json:"is_sold"`
	PostedAt        time.Time     `gorm:"column:posted_at;not null" json:"posted_at"`
	ModeratedAt     *time.Time    `gorm:"column:moderated_at" json:"moderated_at"`
	ExpiryDate      *time.Time    `gorm:"column:expiry_date;index" json:"expiry_date"`
	RefusalReason   *string       `gorm:"column:refusal_reason" json:"refusal_reason"`
	SuspendedAt     *time.Time    `gorm:"column:suspended_at" json:"suspended_at"`
	SuspendedReason *string       `gorm:"column:suspended_reason" json:"suspended_reason"`
	SoldAt          *time.Time    `gorm:"column:sold_at" json:"sold_at"`
	CreatedAt       time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether the account created the listing.
func (l *Listing) OwnedBy(accountID uuid.UUID) bool {
	return accountID != uuid.Nil && l.OwnerAccountID == accountID
}
