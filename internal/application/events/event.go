package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	ListingPending   Kind = "listing.pending"
	ListingApproved  Kind = "listing.approved"
	ListingRefused   Kind = "listing.refused"
	ListingSuspended Kind = "listing.suspended"
	ListingExpired   Kind = "listing.expired"
)

// Event is an outbound message produced after a listing state change commits.
// Target is domain.TargetUser or domain.TargetAdmin.
type Event struct {
	ID          uuid.UUID              `json:"id"`
	Kind        Kind                   `json:"kind"`
	Target      string                 `json:"target"`
	RecipientID *uuid.UUID             `json:"recipient_id,omitempty"`
	ListingID   uuid.UUID              `json:"listing_id"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

func New(kind Kind, target string, recipient *uuid.UUID, listingID uuid.UUID, payload map[string]interface{}, at time.Time) Event {
	return Event{
		ID:          uuid.New(),
		Kind:        kind,
		Target:      target,
		RecipientID: recipient,
		ListingID:   listingID,
		Payload:     payload,
		OccurredAt:  at.UTC(),
	}
}

// PayloadString returns a string payload field or "".
func (e Event) PayloadString(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

// Publisher accepts events for asynchronous, at-least-once delivery.
// Publish never blocks on delivery and never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Handler delivers one event to one destination. A returned error triggers a retry.
type Handler interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
