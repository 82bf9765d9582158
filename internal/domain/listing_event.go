package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit event types written alongside listing mutations.
const (
	EventCreated   = "CREATED"
	EventApproved  = "APPROVED"
	EventRefused   = "REFUSED"
	EventSuspended = "SUSPENDED"
	EventSold      = "SOLD"
	EventExpired   = "EXPIRED"
	EventReposted  = "REPOSTED"
)

type ListingEvent struct {
	EventID        uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID      uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType      string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData      datatypes.JSON `gorm:"column:event_data;not null" json:"event_data"`
	ActorAccountID *uuid.UUID     `gorm:"column:actor_account_id;type:uuid" json:"actor_account_id"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ListingEvent) TableName() string {
	return "listing_events"
}

func (le *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}

// NewListingEvent builds an audit row with data encoded as JSON.
func NewListingEvent(listingID uuid.UUID, eventType string, actor *uuid.UUID, data map[string]interface{}) *ListingEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	b, _ := json.Marshal(data)
	return &ListingEvent{
		ListingID:      listingID,
		EventType:      eventType,
		EventData:      datatypes.JSON(b),
		ActorAccountID: actor,
	}
}
