package engagement

import (
	"context"
	"sync"
	"testing"
	"time"

	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/infrastructure/database"
	"classifieds-backend/internal/infrastructure/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, uuid.UUID, *time.Time) {
	t.Helper()
	repo := database.NewRepository(dbtest.Open(t))
	clock := start
	svc := NewService(repo)
	svc.Now = func() time.Time { return clock }

	l := &domain.Listing{HumanID: "POST001", OwnerAccountID: uuid.New(), Title: "Sofa", Slug: "sofa", Status: domain.StatusApproved, PostedAt: start}
	require.NoError(t, repo.CreateListing(context.Background(), l))
	require.NoError(t, repo.CreateStats(context.Background(), domain.NewListingStats(l.ID, start)))
	return svc, l.ID, &clock
}

// Scenario C
func TestRecordView_Deduplicated(t *testing.T) {
	svc, id, _ := setup(t)
	ctx := context.Background()
	viewer := uuid.New()

	counted, err := svc.RecordView(ctx, id, viewer, "Paris")
	require.NoError(t, err)
	assert.True(t, counted)
	counted, err = svc.RecordView(ctx, id, viewer, "Paris")
	require.NoError(t, err)
	assert.False(t, counted)

	st, err := svc.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Views)
	assert.Equal(t, domain.CityCounts{"Paris": 1}, st.ViewsByCity)
	assert.Equal(t, int64(1), st.ViewsHistory.Window(7).Buckets["2026-02-01"])
}

func TestRecordClick_NotDeduplicatedAndConversion(t *testing.T) {
	svc, id, _ := setup(t)
	ctx := context.Background()
	viewer := uuid.New()

	_, err := svc.RecordView(ctx, id, viewer, "Lyon")
	require.NoError(t, err)
	_, err = svc.RecordView(ctx, id, uuid.New(), "")
	require.NoError(t, err)
	require.NoError(t, svc.RecordClick(ctx, id, viewer, "Lyon"))
	require.NoError(t, svc.RecordClick(ctx, id, viewer, "Lyon"))
	require.NoError(t, svc.RecordClick(ctx, id, viewer, "Lyon"))
	require.NoError(t, svc.RecordShare(ctx, id, viewer, "Lyon"))

	st, err := svc.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Clicks)
	assert.Equal(t, int64(1), st.Shares)
	assert.Equal(t, float64(150), st.ConversionRate)
	assert.Equal(t, domain.CityCounts{"Lyon": 1, domain.UnknownCity: 1}, st.ViewsByCity)
}

func TestRecordClick_WindowKeepsMinNDays(t *testing.T) {
	svc, id, clock := setup(t)
	ctx := context.Background()

	for day := 0; day < 10; day++ {
		*clock = start.AddDate(0, 0, day)
		require.NoError(t, svc.RecordClick(ctx, id, uuid.New(), "Paris"))

		st, err := svc.GetStats(ctx, id)
		require.NoError(t, err)
		n := day + 1
		if n > 7 {
			n = 7
		}
		assert.Len(t, st.ClicksHistory.Window(7).Buckets, n, "day %d", day)
	}

	st, err := svc.GetStats(ctx, id)
	require.NoError(t, err)
	_, oldest := st.ClicksHistory.Window(7).Buckets["2026-02-03"]
	assert.False(t, oldest)
	_, kept := st.ClicksHistory.Window(7).Buckets["2026-02-04"]
	assert.True(t, kept)
	assert.Len(t, st.ClicksHistory.Window(15).Buckets, 10)
	assert.Equal(t, int64(10), st.Clicks)
}

func TestRecordClick_ConcurrentUpdatesAreNotLost(t *testing.T) {
	svc, id, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordClick(ctx, id, uuid.New(), "Paris"))
		}()
	}
	wg.Wait()

	st, err := svc.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(25), st.Clicks)
	assert.Equal(t, int64(25), st.ClicksByCity["Paris"])
}

func TestRecord_UnknownListing(t *testing.T) {
	svc, _, _ := setup(t)
	err := svc.RecordClick(context.Background(), uuid.New(), uuid.New(), "Paris")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type conflictRepo struct {
	domain.ListingRepository
	saves int
}

func (r *conflictRepo) GetStats(_ context.Context, id uuid.UUID) (*domain.ListingStats, error) {
	return domain.NewListingStats(id, start), nil
}

func (r *conflictRepo) SaveStats(context.Context, *domain.ListingStats) (bool, error) {
	r.saves++
	return false, nil
}

func TestUpdateStats_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &conflictRepo{}
	err := UpdateStats(context.Background(), repo, uuid.New(), func(*domain.ListingStats) {})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, MaxAttempts, repo.saves)
}

func TestFavorite_IdempotentAndRemovable(t *testing.T) {
	svc, id, _ := setup(t)
	ctx := context.Background()
	account := uuid.New()

	require.NoError(t, svc.Favorite(ctx, id, account))
	require.NoError(t, svc.Favorite(ctx, id, account))
	require.NoError(t, svc.Unfavorite(ctx, id, account))
	require.NoError(t, svc.Unfavorite(ctx, id, account))

	assert.ErrorIs(t, svc.Favorite(ctx, uuid.New(), account), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Favorite(ctx, id, uuid.Nil), domain.ErrValidation)
}
