package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"classifieds-backend/internal/application/events"
	"classifieds-backend/internal/application/listings"
	"classifieds-backend/internal/application/media"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/metrics"
	"classifieds-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultListingTTL is how long an approved or reposted listing stays up.
const DefaultListingTTL = 30 * 24 * time.Hour

type Service struct {
	Repo       domain.ListingRepository
	Events     events.Publisher
	Media      media.Deleter
	Now        func() time.Time
	ListingTTL time.Duration
}

func NewService(repo domain.ListingRepository, publisher events.Publisher, deleter media.Deleter) *Service {
	return &Service{
		Repo:       repo,
		Events:     publisher,
		Media:      deleter,
		Now:        time.Now,
		ListingTTL: DefaultListingTTL,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ttl() time.Duration {
	if s.ListingTTL > 0 {
		return s.ListingTTL
	}
	return DefaultListingTTL
}

// transition moves a listing to status to. The update is a compare-and-set on the status
// read inside the transaction, so a concurrent moderator cannot apply a second edge.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.ListingStatus, actor *uuid.UUID,
	check func(*domain.Listing) error, updates map[string]interface{}, eventType string, data map[string]interface{}) (*domain.Listing, error) {
	var out *domain.Listing
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		l, err := tx.GetListing(ctx, id)
		if err != nil {
			return err
		}
		if !domain.CanTransition(l.Status, to) {
			return fmt.Errorf("%w: cannot move listing from %s to %s", domain.ErrInvalidState, l.Status, to)
		}
		if check != nil {
			if err := check(l); err != nil {
				return err
			}
		}
		updates["status"] = to
		ok, err := tx.TransitionListing(ctx, id, l.Status, updates)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing changed concurrently", domain.ErrInvalidState)
		}
		if data == nil {
			data = map[string]interface{}{}
		}
		data["from"] = string(l.Status)
		data["to"] = string(to)
		if err := tx.AppendEvent(ctx, domain.NewListingEvent(id, eventType, actor, data)); err != nil {
			return err
		}
		out, err = tx.GetListing(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ModerationTransitions.WithLabelValues(string(to)).Inc()
	log.Info().Str("listing_id", id.String()).Str("human_id", out.HumanID).Str("status", string(to)).Msg("listing status changed")
	return out, nil
}

func (s *Service) notifyOwner(ctx context.Context, kind events.Kind, l *domain.Listing, extra map[string]interface{}) {
	payload := listings.Summary(l)
	for k, v := range extra {
		payload[k] = v
	}
	owner := l.OwnerAccountID
	s.Events.Publish(ctx, events.New(kind, domain.TargetUser, &owner, l.ID, payload, s.now()))
}

// Approve publishes a pending listing for the listing TTL.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, moderatorID *uuid.UUID) (*domain.Listing, error) {
	now := s.now()
	expiry := now.Add(s.ttl())
	l, err := s.transition(ctx, id, domain.StatusApproved, moderatorID, nil, map[string]interface{}{
		"is_active":    true,
		"expiry_date":  expiry,
		"moderated_at": now,
	}, domain.EventApproved, map[string]interface{}{"expiry_date": expiry})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, events.ListingApproved, l, nil)
	return l, nil
}

// Refuse rejects a pending listing. The reason reaches the owner verbatim.
func (s *Service) Refuse(ctx context.Context, id uuid.UUID, reason string, moderatorID *uuid.UUID) (*domain.Listing, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	now := s.now()
	l, err := s.transition(ctx, id, domain.StatusRefused, moderatorID, nil, map[string]interface{}{
		"is_active":      false,
		"refusal_reason": reason,
		"moderated_at":   now,
	}, domain.EventRefused, map[string]interface{}{"reason": reason})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, events.ListingRefused, l, map[string]interface{}{"reason": reason})
	return l, nil
}

// Suspend hides a pending or approved listing. Suspension is final.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID, reason string, moderatorID *uuid.UUID) (*domain.Listing, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	now := s.now()
	l, err := s.transition(ctx, id, domain.StatusSuspended, moderatorID, nil, map[string]interface{}{
		"is_active":        false,
		"suspended_at":     now,
		"suspended_reason": reason,
	}, domain.EventSuspended, map[string]interface{}{"reason": reason})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, events.ListingSuspended, l, map[string]interface{}{"reason": reason})
	return l, nil
}

// Expire ends an approved listing whose expiry date has passed and hides it.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	now := s.now()
	check := func(l *domain.Listing) error {
		if l.ExpiryDate == nil || now.Before(*l.ExpiryDate) {
			return fmt.Errorf("%w: listing has not reached its expiry date", domain.ErrInvalidState)
		}
		return nil
	}
	l, err := s.transition(ctx, id, domain.StatusExpired, nil, check, map[string]interface{}{
		"is_active": false,
	}, domain.EventExpired, nil)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, events.ListingExpired, l, nil)
	return l, nil
}

// ExpireDue expires up to limit approved listings past their expiry date.
// Listings that changed state in the meantime are skipped.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	due, err := s.Repo.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, l := range due {
		if _, err := s.Expire(ctx, l.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("expired listings")
	}
	return expired, nil
}

// MarkSold flags the owner's listing as sold in any status. The status is unchanged; repeats are no-ops.
func (s *Service) MarkSold(ctx context.Context, id, actorID uuid.UUID) (*domain.Listing, error) {
	now := s.now()
	var out *domain.Listing
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		l, err := tx.GetListing(ctx, id)
		if err != nil {
			return err
		}
		if !l.OwnedBy(actorID) {
			return domain.ErrUnauthorized
		}
		if l.IsSold {
			out = l
			return nil
		}
		ok, err := tx.TransitionListing(ctx, id, l.Status, map[string]interface{}{
			"is_sold": true,
			"sold_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing changed concurrently", domain.ErrInvalidState)
		}
		if err := tx.AppendEvent(ctx, domain.NewListingEvent(id, domain.EventSold, &actorID, nil)); err != nil {
			return err
		}
		out, err = tx.GetListing(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RepostInput carries the fields the owner may change on repost. Nil fields are kept.
type RepostInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Category    *string   `json:"category"`
	Subcategory *string   `json:"subcategory"`
	Country     *string   `json:"country"`
	City        *string   `json:"city"`
	Address     *string   `json:"address"`
	MediaRefs   *[]string `json:"media_refs"`
}

func (in RepostInput) updates(ownerID uuid.UUID) (map[string]interface{}, error) {
	u := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		slug := listings.Slugify(title)
		if slug == "" {
			return nil, fmt.Errorf("%w: title must contain letters or digits", domain.ErrValidation)
		}
		u["title"] = title
		u["slug"] = slug
	}
	if in.Description != nil {
		u["description"] = *in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
		}
		u["price"] = *in.Price
	}
	set := func(key string, v *string) error {
		if v == nil {
			return nil
		}
		if strings.TrimSpace(*v) == "" && key != "subcategory" && key != "address" {
			return fmt.Errorf("%w: %s must not be empty", domain.ErrValidation, key)
		}
		u[key] = strings.TrimSpace(*v)
		return nil
	}
	for key, v := range map[string]*string{
		"category":    in.Category,
		"subcategory": in.Subcategory,
		"country":     in.Country,
		"city":        in.City,
		"address":     in.Address,
	} {
		if err := set(key, v); err != nil {
			return nil, err
		}
	}
	if in.MediaRefs != nil {
		for _, ref := range *in.MediaRefs {
			if !validation.IsOwnedMediaRef(ref, ownerID) {
				return nil, fmt.Errorf("%w: invalid media ref %q", domain.ErrValidation, ref)
			}
		}
		u["media_refs"] = domain.MediaRefs(*in.MediaRefs)
	}
	return u, nil
}

// repostStatus is the status a repost leaves behind. Pending and approved listings keep theirs.
// An expired listing was approved before, so renewing it publishes it again. Refused and
// suspended listings need a fresh submission.
func repostStatus(from domain.ListingStatus) (domain.ListingStatus, error) {
	switch from {
	case domain.StatusPending, domain.StatusApproved:
		return from, nil
	case domain.StatusExpired:
		return domain.StatusApproved, nil
	}
	return "", fmt.Errorf("%w: %s listings cannot be reposted", domain.ErrInvalidState, from)
}

// Repost renews the owner's listing for another TTL and merges edited fields.
func (s *Service) Repost(ctx context.Context, id, actorID uuid.UUID, in RepostInput) (*domain.Listing, error) {
	// Only the owner may repost, so refs must live in the actor's folder.
	updates, err := in.updates(actorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expiry := now.Add(s.ttl())
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	updates["expiry_date"] = expiry
	updates["posted_at"] = now

	var out *domain.Listing
	err = s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		l, err := tx.GetListing(ctx, id)
		if err != nil {
			return err
		}
		if !l.OwnedBy(actorID) {
			return domain.ErrUnauthorized
		}
		to, err := repostStatus(l.Status)
		if err != nil {
			return err
		}
		if to != l.Status {
			updates["status"] = to
			updates["is_active"] = true
		}
		ok, err := tx.TransitionListing(ctx, id, l.Status, updates)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing changed concurrently", domain.ErrInvalidState)
		}
		if err := tx.AppendEvent(ctx, domain.NewListingEvent(id, domain.EventReposted, &actorID, map[string]interface{}{
			"expiry_date": expiry,
			"fields":      fields,
			"from":        string(l.Status),
			"to":          string(to),
		})); err != nil {
			return err
		}
		out, err = tx.GetListing(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", id.String()).Time("expiry_date", expiry).Msg("listing reposted")
	return out, nil
}

// ownedRefs keeps the refs inside the owner's folder. Anything else belongs to another account
// and must never reach the media backend.
func ownedRefs(l *domain.Listing) []string {
	refs := make([]string, 0, len(l.MediaRefs))
	for _, ref := range l.MediaRefs {
		if validation.IsOwnedMediaRef(ref, l.OwnerAccountID) {
			refs = append(refs, ref)
			continue
		}
		log.Warn().Str("listing_id", l.ID.String()).Str("ref", ref).Msg("skipping media outside the owner folder")
	}
	return refs
}

// Delete removes the listing with its reports, favorites, stats and audit trail, then asks the
// media backend to drop its files. Media failures are logged, never returned.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) error {
	var refs []string
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		l, err := tx.GetListing(ctx, id)
		if err != nil {
			return err
		}
		if !isAdmin && !l.OwnedBy(actorID) {
			return domain.ErrUnauthorized
		}
		refs = ownedRefs(l)
		return tx.DeleteListing(ctx, id)
	})
	if err != nil {
		return err
	}
	log.Info().Str("listing_id", id.String()).Str("actor_id", actorID.String()).Bool("admin", isAdmin).Msg("listing deleted")

	if s.Media != nil && len(refs) > 0 {
		if err := s.Media.DeleteMedia(ctx, id, refs); err != nil {
			log.Error().Err(err).Str("listing_id", id.String()).Int("files", len(refs)).Msg("media deletion failed")
		}
	}
	return nil
}
