package events

import (
	"context"
	"encoding/json"
	"fmt"

	"classifieds-backend/internal/application/emails"
	"classifieds-backend/internal/application/notifications"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Notifier persists inbox entries.
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notice) (*domain.Notification, error)
}

// NotificationHandler writes every event to the user or admin inbox.
type NotificationHandler struct {
	Notifier Notifier
}

func (h *NotificationHandler) Name() string { return "notification" }

func (h *NotificationHandler) Handle(ctx context.Context, e Event) error {
	listingID := e.ListingID
	_, err := h.Notifier.Notify(ctx, notifications.Notice{
		TargetType:  e.Target,
		RecipientID: e.RecipientID,
		Kind:        string(e.Kind),
		ListingID:   &listingID,
		Payload:     e.Payload,
	})
	return err
}

// AccountReader looks up recipients for owner emails.
type AccountReader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// EmailHandler sends moderation emails for pending, approved and refused listings.
// Other kinds produce no email.
type EmailHandler struct {
	Sender     emails.Sender
	Accounts   AccountReader
	AdminEmail string
}

func (h *EmailHandler) Name() string { return "email" }

func (h *EmailHandler) Handle(ctx context.Context, e Event) error {
	mail := emails.ListingMail{
		HumanID: e.PayloadString("human_id"),
		Title:   e.PayloadString("title"),
		Slug:    e.PayloadString("slug"),
	}
	switch e.Kind {
	case ListingPending:
		if h.AdminEmail == "" {
			return nil
		}
		return h.Sender.SendListingPending(ctx, h.AdminEmail, mail)
	case ListingApproved, ListingRefused:
		owner, err := h.owner(ctx, e)
		if err != nil {
			return err
		}
		if !validation.IsValidEmail(owner.Email) {
			log.Warn().Str("listing_id", e.ListingID.String()).Str("kind", string(e.Kind)).Msg("owner has no deliverable email; skipping")
			return nil
		}
		if e.Kind == ListingApproved {
			return h.Sender.SendListingApproved(ctx, owner.Email, owner.Name, mail)
		}
		return h.Sender.SendListingRefused(ctx, owner.Email, owner.Name, mail, e.PayloadString("reason"))
	}
	return nil
}

func (h *EmailHandler) owner(ctx context.Context, e Event) (*domain.Account, error) {
	if e.RecipientID == nil {
		return nil, fmt.Errorf("%s event %s has no recipient", e.Kind, e.ID)
	}
	return h.Accounts.GetAccount(ctx, *e.RecipientID)
}

// StreamHandler appends events to a Redis stream for external consumers (push, chat, search).
type StreamHandler struct {
	Client *redis.Client
	Stream string
	MaxLen int64
}

func (h *StreamHandler) Name() string { return "stream" }

func (h *StreamHandler) Handle(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	recipient := ""
	if e.RecipientID != nil {
		recipient = e.RecipientID.String()
	}
	maxLen := h.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return h.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.Stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":           e.ID.String(),
			"kind":         string(e.Kind),
			"target":       e.Target,
			"recipient_id": recipient,
			"listing_id":   e.ListingID.String(),
			"payload":      string(payload),
			"occurred_at":  e.OccurredAt.Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}).Err()
}
