package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TargetUser  = "user"
	TargetAdmin = "admin"
)

// Notification is an inbox entry. Admin entries have no recipient.
type Notification struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TargetType  string         `gorm:"column:target_type;type:varchar(10);not null;index:idx_notifications_target" json:"target_type"`
	RecipientID *uuid.UUID     `gorm:"column:recipient_id;type:uuid;index:idx_notifications_target" json:"recipient_id"`
	Kind        string         `gorm:"column:kind;type:varchar(40);not null" json:"kind"`
	ListingID   *uuid.UUID     `gorm:"column:listing_id;type:uuid" json:"listing_id"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	ReadAt      *time.Time     `gorm:"column:read_at" json:"read_at"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
