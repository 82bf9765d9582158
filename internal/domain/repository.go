package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListingRepository is the persistence contract of the listing subsystem.
// Implementations return ErrNotFound for missing rows and wrap other failures in ErrStorage.
type ListingRepository interface {
	// Transaction runs fn against a repository bound to one transaction.
	// Any error returned by fn rolls back every write made through it.
	Transaction(ctx context.Context, fn func(tx ListingRepository) error) error

	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	// RollOverMonth resets the monthly counter when the stored label differs from label.
	RollOverMonth(ctx context.Context, id uuid.UUID, label string) error
	// ReserveMonthlySlot increments the monthly and lifetime counters only while
	// the monthly counter is below maxAds. It reports whether a slot was taken.
	ReserveMonthlySlot(ctx context.Context, id uuid.UUID, maxAds int) (bool, error)
	SetPlanExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	// GetPromotion returns the global promotion or nil when none is configured.
	GetPromotion(ctx context.Context) (*Promotion, error)

	// NextSequence atomically increments the named counter and returns the new value.
	NextSequence(ctx context.Context, name string) (int64, error)

	CreateListing(ctx context.Context, l *Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	// TransitionListing applies updates only while the listing is still in status from.
	TransitionListing(ctx context.Context, id uuid.UUID, from ListingStatus, updates map[string]interface{}) (bool, error)
	UpdateListing(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Listing, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Listing, error)
	// DeleteListing removes the listing with its reports, favorites, view ledger, stats and audit events.
	DeleteListing(ctx context.Context, id uuid.UUID) error

	CreateStats(ctx context.Context, s *ListingStats) error
	GetStats(ctx context.Context, listingID uuid.UUID) (*ListingStats, error)
	// SaveStats writes s only if its version is unchanged since it was read. On success the version is bumped.
	SaveStats(ctx context.Context, s *ListingStats) (bool, error)

	// InsertView records a (listing, viewer) pair. It reports false if the pair already exists.
	InsertView(ctx context.Context, v *ListingView) (bool, error)

	FindReport(ctx context.Context, listingID, reporterID uuid.UUID) (*Report, error)
	CountReportsSince(ctx context.Context, reporterID uuid.UUID, since time.Time) (int64, error)
	// InsertReport reports false if the reporter already reported the listing.
	InsertReport(ctx context.Context, r *Report) (bool, error)

	IncrementLocation(ctx context.Context, country, city string) error

	AppendEvent(ctx context.Context, e *ListingEvent) error
	ListEvents(ctx context.Context, listingID uuid.UUID) ([]ListingEvent, error)

	AddFavorite(ctx context.Context, accountID, listingID uuid.UUID) error
	RemoveFavorite(ctx context.Context, accountID, listingID uuid.UUID) error
}
