package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MonthLabelLayout formats the quota month, e.g. "2026-10".
const MonthLabelLayout = "2006-01"

func MonthLabel(t time.Time) string {
	return t.UTC().Format(MonthLabelLayout)
}

// Plan is a subscription tier. An account references at most one active plan.
type Plan struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	MaxAds    int       `gorm:"column:max_ads;not null" json:"max_ads"`
	MaxPhotos int       `gorm:"column:max_photos;not null" json:"max_photos"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Account carries the quota counters the listing workflow reads and updates.
// Identity and credentials live in the external auth service.
type Account struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email              string     `gorm:"column:email;uniqueIndex" json:"email"`
	Name               string     `gorm:"column:name" json:"name"`
	Role               string     `gorm:"column:role;type:varchar(20);not null;default:'user'" json:"role"`
	IsActive           bool       `gorm:"column:is_active;not null" json:"is_active"`
	PlanID             *uuid.UUID `gorm:"column:plan_id;type:uuid" json:"plan_id"`
	Plan               *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	CurrentMonthLabel  string     `gorm:"column:current_month_label;type:varchar(7)" json:"current_month_label"`
	AdsPostedThisMonth int        `gorm:"column:ads_posted_this_month;not null;default:0" json:"ads_posted_this_month"`
	AdsCount           int        `gorm:"column:ads_count;not null;default:0" json:"ads_count"`
	PlanExpiresAt      *time.Time `gorm:"column:plan_expires_at" json:"plan_expires_at"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Promotion is the global override singleton, administered outside this service.
type Promotion struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Enabled        bool      `gorm:"column:enabled;not null;default:false" json:"enabled"`
	StartDate      time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate        time.Time `gorm:"column:end_date;not null" json:"end_date"`
	MaxAdsPerMonth int       `gorm:"column:max_ads_per_month;not null" json:"max_ads_per_month"`
	MaxPhotosPerAd int       `gorm:"column:max_photos_per_ad;not null" json:"max_photos_per_ad"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Promotion) TableName() string {
	return "promotions"
}

func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ActiveAt reports whether the promotion overrides plan limits at now (bounds inclusive).
func (p *Promotion) ActiveAt(now time.Time) bool {
	if p == nil || !p.Enabled {
		return false
	}
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}
