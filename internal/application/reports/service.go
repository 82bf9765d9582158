package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classifieds-backend/internal/application/engagement"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDailyLimit is how many reports one account may file per trailing 24 hours.
	DefaultDailyLimit = 5
	rateWindow        = 24 * time.Hour
)

type Service struct {
	Repo       domain.ListingRepository
	Now        func() time.Time
	DailyLimit int
}

func NewService(repo domain.ListingRepository) *Service {
	return &Service{Repo: repo, Now: time.Now, DailyLimit: DefaultDailyLimit}
}

type SubmitInput struct {
	Reason  string `json:"reason"`
	City    string `json:"city"`
	Details string `json:"details"`
}

// SubmitResult is the outcome of a submission. AlreadyReported is not an error:
// the existing report is returned and nothing is written.
type SubmitResult struct {
	Report          *domain.Report `json:"report"`
	AlreadyReported bool           `json:"already_reported"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) limit() int {
	if s.DailyLimit > 0 {
		return s.DailyLimit
	}
	return DefaultDailyLimit
}

// Submit files an abuse report for a listing and bumps its report counters.
func (s *Service) Submit(ctx context.Context, listingID, reporterID uuid.UUID, in SubmitInput) (*SubmitResult, error) {
	reason := domain.ReportReason(strings.TrimSpace(in.Reason))
	if !reason.Valid() {
		metrics.ReportsSubmitted.WithLabelValues("invalid_reason").Inc()
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReason, in.Reason)
	}
	if reporterID == uuid.Nil {
		return nil, fmt.Errorf("%w: reporter is required", domain.ErrValidation)
	}
	now := s.now()
	city := strings.TrimSpace(in.City)

	var result *SubmitResult
	err := s.Repo.Transaction(ctx, func(tx domain.ListingRepository) error {
		if _, err := tx.GetListing(ctx, listingID); err != nil {
			return err
		}
		existing, err := tx.FindReport(ctx, listingID, reporterID)
		if err == nil {
			result = &SubmitResult{Report: existing, AlreadyReported: true}
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		count, err := tx.CountReportsSince(ctx, reporterID, now.Add(-rateWindow))
		if err != nil {
			return err
		}
		if count >= int64(s.limit()) {
			return fmt.Errorf("%w: %d reports in the last 24 hours", domain.ErrRateLimited, count)
		}

		report := &domain.Report{
			ListingID:         listingID,
			ReporterAccountID: reporterID,
			Reason:            reason,
			City:              city,
			Details:           strings.TrimSpace(in.Details),
			ReportedAt:        now,
		}
		inserted, err := tx.InsertReport(ctx, report)
		if err != nil {
			return err
		}
		if !inserted {
			// lost the race to a concurrent duplicate
			existing, err := tx.FindReport(ctx, listingID, reporterID)
			if err != nil {
				return err
			}
			result = &SubmitResult{Report: existing, AlreadyReported: true}
			return nil
		}
		result = &SubmitResult{Report: report}
		return engagement.UpdateStats(ctx, tx, listingID, func(st *domain.ListingStats) {
			st.RecordReport(city, now)
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			metrics.ReportsSubmitted.WithLabelValues("rate_limited").Inc()
			log.Warn().Str("reporter_id", reporterID.String()).Msg("report rate limit reached")
		}
		return nil, err
	}
	if result.AlreadyReported {
		metrics.ReportsSubmitted.WithLabelValues("already_reported").Inc()
	} else {
		metrics.ReportsSubmitted.WithLabelValues("created").Inc()
		metrics.EngagementEvents.WithLabelValues(engagement.MetricReport).Inc()
		log.Info().Str("listing_id", listingID.String()).Str("reason", string(reason)).Msg("listing reported")
	}
	return result, nil
}
