package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxAttempts bounds optimistic-concurrency retries on a listing's stats row.
const MaxAttempts = 5

const (
	MetricView     = "view"
	MetricClick    = "click"
	MetricShare    = "share"
	MetricReport   = "report"
	MetricFavorite = "favorite"
)

type Service struct {
	Repo domain.ListingRepository
	Now  func() time.Time
}

func NewService(repo domain.ListingRepository) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// UpdateStats applies mutate to the listing's stats inside tx as a versioned read-modify-write.
// A lost race re-reads and re-applies, up to MaxAttempts times; then it fails with ErrStorage.
func UpdateStats(ctx context.Context, tx domain.ListingRepository, listingID uuid.UUID, mutate func(*domain.ListingStats)) error {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		stats, err := tx.GetStats(ctx, listingID)
		if err != nil {
			return err
		}
		mutate(stats)
		ok, err := tx.SaveStats(ctx, stats)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		metrics.StatsConflicts.Inc()
		log.Debug().Str("listing_id", listingID.String()).Int("attempt", attempt).Msg("stats version conflict, retrying")
	}
	return fmt.Errorf("%w: stats for listing %s kept changing after %d attempts", domain.ErrStorage, listingID, MaxAttempts)
}

// RecordView counts a viewer once per listing, ever. It reports whether the view was counted.
func (s *Service) RecordView(ctx context.Context, listingID, viewerID uuid.UUID, city string) (bool, error) {
	if viewerID == uuid.Nil {
		return false, fmt.Errorf("%w: viewer is required", domain.ErrValidation)
	}
	now := s.now()
	counted := false
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		inserted, err := tx.InsertView(ctx, &domain.ListingView{ListingID: listingID, ViewerAccountID: viewerID, ViewedAt: now})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		counted = true
		return UpdateStats(ctx, tx, listingID, func(st *domain.ListingStats) {
			st.RecordView(normalizeCity(city), now)
		})
	})
	if err != nil {
		return false, err
	}
	if counted {
		metrics.EngagementEvents.WithLabelValues(MetricView).Inc()
	}
	return counted, nil
}

// RecordClick counts every click and refreshes the conversion rate.
func (s *Service) RecordClick(ctx context.Context, listingID, viewerID uuid.UUID, city string) error {
	return s.record(ctx, listingID, MetricClick, func(st *domain.ListingStats, now time.Time) {
		st.RecordClick(normalizeCity(city), now)
	})
}

// RecordShare counts every share.
func (s *Service) RecordShare(ctx context.Context, listingID, viewerID uuid.UUID, city string) error {
	return s.record(ctx, listingID, MetricShare, func(st *domain.ListingStats, now time.Time) {
		st.RecordShare(normalizeCity(city), now)
	})
}

func (s *Service) record(ctx context.Context, listingID uuid.UUID, metric string, apply func(*domain.ListingStats, time.Time)) error {
	now := s.now()
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		return UpdateStats(ctx, tx, listingID, func(st *domain.ListingStats) { apply(st, now) })
	})
	if err != nil {
		return err
	}
	metrics.EngagementEvents.WithLabelValues(metric).Inc()
	return nil
}

// Favorite bookmarks a listing for the account. Repeating it is a no-op.
func (s *Service) Favorite(ctx context.Context, listingID, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return fmt.Errorf("%w: account is required", domain.ErrValidation)
	}
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		if _, err := tx.GetListing(ctx, listingID); err != nil {
			return err
		}
		return tx.AddFavorite(ctx, accountID, listingID)
	})
	if err != nil {
		return err
	}
	metrics.EngagementEvents.WithLabelValues(MetricFavorite).Inc()
	return nil
}

// Unfavorite removes the bookmark if present.
func (s *Service) Unfavorite(ctx context.Context, listingID, accountID uuid.UUID) error {
	return s.Repo.RemoveFavorite(ctx, accountID, listingID)
}

func (s *Service) GetStats(ctx context.Context, listingID uuid.UUID) (*domain.ListingStats, error) {
	return s.Repo.GetStats(ctx, listingID)
}

func normalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return domain.UnknownCity
	}
	return city
}
