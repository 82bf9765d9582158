package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classifieds-backend/internal/application/events"
	"classifieds-backend/internal/application/quota"
	"classifieds-backend/internal/application/sequence"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/metrics"
	"classifieds-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	Repo   domain.ListingRepository
	IDs    *sequence.Generator
	Events events.Publisher
	Now    func() time.Time
}

func NewService(repo domain.ListingRepository, publisher events.Publisher) *Service {
	return &Service{
		Repo:   repo,
		IDs:    sequence.NewGenerator(repo),
		Events: publisher,
		Now:    time.Now,
	}
}

type CreateListingInput struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Country     string   `json:"country"`
	City        string   `json:"city"`
	Address     string   `json:"address"`
	MediaRefs   []string `json:"media_refs"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
}

func (in *CreateListingInput) normalize() {
	in.Category = strings.TrimSpace(in.Category)
	in.Subcategory = strings.TrimSpace(in.Subcategory)
	in.Country = strings.TrimSpace(in.Country)
	in.City = strings.TrimSpace(in.City)
	in.Title = strings.TrimSpace(in.Title)
}

func (in CreateListingInput) validate(ownerID uuid.UUID) error {
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if in.Country == "" {
		missing = append(missing, "country")
	}
	if in.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if Slugify(in.Title) == "" {
		return fmt.Errorf("%w: title must contain letters or digits", domain.ErrValidation)
	}
	for _, ref := range in.MediaRefs {
		if !validation.IsOwnedMediaRef(ref, ownerID) {
			return fmt.Errorf("%w: invalid media ref %q", domain.ErrValidation, ref)
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateListing checks the account's quota, assigns a human id and persists the listing
// with its seeded stats in one transaction. Moderators are notified after commit.
func (s *Service) CreateListing(ctx context.Context, accountID uuid.UUID, in CreateListingInput) (*domain.Listing, error) {
	in.normalize()
	if err := in.validate(accountID); err != nil {
		return nil, err
	}
	now := s.now()

	var listing *domain.Listing
	var q quota.Quota
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return domain.ErrAccountInactive
		}

		label := domain.MonthLabel(now)
		if account.CurrentMonthLabel != label {
			if err := tx.RollOverMonth(ctx, accountID, label); err != nil {
				return err
			}
			account.CurrentMonthLabel = label
			account.AdsPostedThisMonth = 0
		}

		promo, err := tx.GetPromotion(ctx)
		if err != nil {
			return err
		}
		q, err = quota.Resolve(account, promo, now)
		if err != nil {
			return err
		}
		if len(in.MediaRefs) > q.MaxPhotos {
			return fmt.Errorf("%w: at most %d photos allowed", domain.ErrValidation, q.MaxPhotos)
		}

		// Conditional increment: concurrent creators cannot both take the last slot.
		reserved, err := tx.ReserveMonthlySlot(ctx, accountID, q.MaxAds)
		if err != nil {
			return err
		}
		if !reserved {
			return fmt.Errorf("%w: %d of %d listings used this month", domain.ErrQuotaExceeded, account.AdsPostedThisMonth, q.MaxAds)
		}
		if q.PlanExpiresAt != nil {
			if err := tx.SetPlanExpiry(ctx, accountID, *q.PlanExpiresAt); err != nil {
				return err
			}
		}

		humanID, err := s.IDs.NextIn(ctx, tx)
		if err != nil {
			return err
		}

		listing = &domain.Listing{
			ID:             uuid.New(),
			HumanID:        humanID,
			OwnerAccountID: accountID,
			Category:       in.Category,
			Subcategory:    in.Subcategory,
			Country:        in.Country,
			City:           in.City,
			Address:        in.Address,
			MediaRefs:      domain.MediaRefs(in.MediaRefs),
			Title:          in.Title,
			Slug:           Slugify(in.Title),
			Description:    in.Description,
			Price:          in.Price,
			Status:         domain.StatusPending,
			IsActive:       false,
			PostedAt:       now,
		}
		if err := tx.CreateListing(ctx, listing); err != nil {
			return err
		}
		if err := tx.CreateStats(ctx, domain.NewListingStats(listing.ID, now)); err != nil {
			return err
		}
		if err := tx.IncrementLocation(ctx, listing.Country, listing.City); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.NewListingEvent(listing.ID, domain.EventCreated, &accountID, map[string]interface{}{
			"human_id":     humanID,
			"quota_source": q.Source,
			"max_ads":      q.MaxAds,
		}))
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaRejections.WithLabelValues(q.Source).Inc()
		}
		return nil, err
	}

	metrics.ListingsCreated.Inc()
	log.Info().Str("listing_id", listing.ID.String()).Str("human_id", listing.HumanID).
		Str("account_id", accountID.String()).Str("quota_source", q.Source).Msg("listing created")

	s.Events.Publish(ctx, events.New(events.ListingPending, domain.TargetAdmin, nil, listing.ID, Summary(listing), now))
	return listing, nil
}

// Summary is the listing payload carried by outbound events.
func Summary(l *domain.Listing) map[string]interface{} {
	return map[string]interface{}{
		"human_id": l.HumanID,
		"title":    l.Title,
		"slug":     l.Slug,
		"owner_id": l.OwnerAccountID.String(),
	}
}

func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	return s.Repo.GetListing(ctx, id)
}

func (s *Service) ListOwnerListings(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

// ListEvents returns the audit trail. Only the owner or an admin may read it.
func (s *Service) ListEvents(ctx context.Context, listingID, actorID uuid.UUID, isAdmin bool) ([]domain.ListingEvent, error) {
	l, err := s.Repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !l.OwnedBy(actorID) {
		return nil, domain.ErrUnauthorized
	}
	return s.Repo.ListEvents(ctx, listingID)
}
