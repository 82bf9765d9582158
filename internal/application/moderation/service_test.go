package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"classifieds-backend/internal/application/events"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/infrastructure/database"
	"classifieds-backend/internal/infrastructure/database/dbtest"
	"classifieds-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

type fakeMedia struct {
	calls [][]string
	err   error
}

func (f *fakeMedia) DeleteMedia(_ context.Context, _ uuid.UUID, keys []string) error {
	f.calls = append(f.calls, keys)
	return f.err
}

type fixture struct {
	svc   *Service
	repo  *database.GormRepository
	rec   *events.Recorder
	media *fakeMedia
	clock time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := database.NewRepository(dbtest.Open(t))
	f := &fixture{repo: repo, rec: &events.Recorder{}, media: &fakeMedia{}, clock: now}
	f.svc = NewService(repo, f.rec, f.media)
	f.svc.Now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) listing(t *testing.T, status domain.ListingStatus) *domain.Listing {
	t.Helper()
	owner := uuid.New()
	prefix := validation.ListingMediaPrefix(owner)
	l := &domain.Listing{
		HumanID:        "POST" + uuid.NewString()[:5],
		OwnerAccountID: owner,
		Category:       "phones",
		Country:        "FR",
		City:           "Nice",
		Title:          "Old phone",
		Slug:           "old-phone",
		MediaRefs:      domain.MediaRefs{prefix + "1-a.jpg", prefix + "2-b.jpg"},
		Status:         status,
		PostedAt:       now,
	}
	if status == domain.StatusApproved {
		exp := now.Add(DefaultListingTTL)
		l.ExpiryDate = &exp
		l.IsActive = true
	}
	require.NoError(t, f.repo.CreateListing(context.Background(), l))
	require.NoError(t, f.repo.CreateStats(context.Background(), domain.NewListingStats(l.ID, now)))
	return l
}

func TestApprove(t *testing.T) {
	f := setup(t)
	l := f.listing(t, domain.StatusPending)

	got, err := f.svc.Approve(context.Background(), l.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, now.Add(30*24*time.Hour).Equal(got.ExpiryDate.UTC()))
	require.NotNil(t, got.ModeratedAt)

	require.Len(t, f.rec.Events(), 1)
	e := f.rec.Events()[0]
	assert.Equal(t, events.ListingApproved, e.Kind)
	require.NotNil(t, e.RecipientID)
	assert.Equal(t, l.OwnerAccountID, *e.RecipientID)

	evs, err := f.repo.ListEvents(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventApproved, evs[0].EventType)
}

// Scenario E
func TestApprove_RefusedListingIsInvalidState(t *testing.T) {
	f := setup(t)
	l := f.listing(t, domain.StatusRefused)

	_, err := f.svc.Approve(context.Background(), l.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := f.repo.GetListing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefused, got.Status)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.ModeratedAt)
	assert.Empty(t, f.rec.Events())
}

func TestRefuse(t *testing.T) {
	f := setup(t)
	l := f.listing(t, domain.StatusPending)

	_, err := f.svc.Refuse(context.Background(), l.ID, "  ", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	reason := "Photos show a different item than the title"
	got, err := f.svc.Refuse(context.Background(), l.ID, reason, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefused, got.Status)
	require.NotNil(t, got.RefusalReason)
	assert.Equal(t, reason, *got.RefusalReason)

	require.Len(t, f.rec.Events(), 1)
	assert.Equal(t, reason, f.rec.Events()[0].PayloadString("reason"))

	_, err = f.svc.Refuse(context.Background(), l.ID, reason, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSuspend_FromPendingAndApprovedIsFinal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, status := range []domain.ListingStatus{domain.StatusPending, domain.StatusApproved} {
		l := f.listing(t, status)
		got, err := f.svc.Suspend(ctx, l.ID, "fraud suspicion", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuspended, got.Status)
		assert.False(t, got.IsActive)
		require.NotNil(t, got.SuspendedAt)
		require.NotNil(t, got.SuspendedReason)

		_, err = f.svc.Approve(ctx, l.ID, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	}
	sold := f.listing(t, domain.StatusSold)
	_, err := f.svc.Suspend(ctx, sold.ID, "x", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMarkSold(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)

	_, err := f.svc.MarkSold(ctx, l.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	got, err := f.svc.MarkSold(ctx, l.ID, l.OwnerAccountID)
	require.NoError(t, err)
	assert.True(t, got.IsSold)
	assert.Equal(t, domain.StatusApproved, got.Status)

	again, err := f.svc.MarkSold(ctx, l.ID, l.OwnerAccountID)
	require.NoError(t, err)
	assert.True(t, again.IsSold)

	pending := f.listing(t, domain.StatusPending)
	got, err = f.svc.MarkSold(ctx, pending.ID, pending.OwnerAccountID)
	require.NoError(t, err)
	assert.True(t, got.IsSold)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestExpire(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)

	_, err := f.svc.Expire(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	f.clock = now.Add(DefaultListingTTL)
	got, err := f.svc.Expire(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.False(t, got.IsActive)
	assert.Equal(t, []events.Kind{events.ListingExpired}, f.rec.Kinds())
}

func TestExpireDue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.listing(t, domain.StatusApproved)
	b := f.listing(t, domain.StatusApproved)
	f.listing(t, domain.StatusPending)
	later := now.Add(90 * 24 * time.Hour)
	require.NoError(t, f.repo.UpdateListing(ctx, b.ID, map[string]interface{}{"expiry_date": later}))

	f.clock = now.Add(DefaultListingTTL + time.Hour)
	n, err := f.svc.ExpireDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.repo.GetListing(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	got, err = f.repo.GetListing(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
}

func TestRepost(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)
	f.clock = now.Add(20 * 24 * time.Hour)

	title := "Old phone, new battery"
	price := 80.0
	_, err := f.svc.Repost(ctx, l.ID, uuid.New(), RepostInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	got, err := f.svc.Repost(ctx, l.ID, l.OwnerAccountID, RepostInput{Title: &title, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, "old-phone-new-battery", got.Slug)
	assert.Equal(t, 80.0, got.Price)
	assert.Equal(t, "Nice", got.City)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, f.clock.Add(DefaultListingTTL).Equal(got.ExpiryDate.UTC()))

	refused := f.listing(t, domain.StatusRefused)
	_, err = f.svc.Repost(ctx, refused.ID, refused.OwnerAccountID, RepostInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	suspended := f.listing(t, domain.StatusSuspended)
	_, err = f.svc.Repost(ctx, suspended.ID, suspended.OwnerAccountID, RepostInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRepost_RenewsExpiredListing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)
	f.clock = now.Add(DefaultListingTTL)
	_, err := f.svc.Expire(ctx, l.ID)
	require.NoError(t, err)

	f.clock = now.Add(DefaultListingTTL + 48*time.Hour)
	got, err := f.svc.Repost(ctx, l.ID, l.OwnerAccountID, RepostInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, f.clock.Add(DefaultListingTTL).Equal(got.ExpiryDate.UTC()))

	evs, err := f.repo.ListEvents(ctx, l.ID)
	require.NoError(t, err)
	var types []string
	for _, e := range evs {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, domain.EventReposted)
}

func TestRepost_RejectsForeignMedia(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)

	foreign := []string{validation.ListingMediaPrefix(uuid.New()) + "1700000000000-photo.jpg"}
	_, err := f.svc.Repost(ctx, l.ID, l.OwnerAccountID, RepostInput{MediaRefs: &foreign})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.repo.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.MediaRefs, got.MediaRefs)

	own := []string{validation.ListingMediaPrefix(l.OwnerAccountID) + "3-c.jpg"}
	got, err = f.svc.Repost(ctx, l.ID, l.OwnerAccountID, RepostInput{MediaRefs: &own})
	require.NoError(t, err)
	assert.Equal(t, domain.MediaRefs(own), got.MediaRefs)
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)
	reporter := uuid.New()
	_, err := f.repo.InsertReport(ctx, &domain.Report{ListingID: l.ID, ReporterAccountID: reporter, Reason: domain.ReasonScam, ReportedAt: now})
	require.NoError(t, err)
	_, err = f.repo.FindReport(ctx, l.ID, reporter)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, l.ID, uuid.New(), false), domain.ErrUnauthorized)
	assert.Empty(t, f.media.calls)

	require.NoError(t, f.svc.Delete(ctx, l.ID, l.OwnerAccountID, false))
	_, err = f.repo.GetListing(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.repo.FindReport(ctx, l.ID, reporter)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, f.media.calls, 1)
	assert.Equal(t, []string(l.MediaRefs), f.media.calls[0])
}

func TestDelete_OnlyOwnerMediaReachesBackend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	l := f.listing(t, domain.StatusApproved)
	own := l.MediaRefs[0]
	foreign := validation.ListingMediaPrefix(uuid.New()) + "1700000000000-photo.jpg"
	require.NoError(t, f.repo.UpdateListing(ctx, l.ID, map[string]interface{}{
		"media_refs": domain.MediaRefs{own, foreign},
	}))

	require.NoError(t, f.svc.Delete(ctx, l.ID, l.OwnerAccountID, false))
	require.Len(t, f.media.calls, 1)
	assert.Equal(t, []string{own}, f.media.calls[0])
}

func TestDelete_AdminAndMediaFailureSwallowed(t *testing.T) {
	f := setup(t)
	f.media.err = errors.New("bucket unavailable")
	l := f.listing(t, domain.StatusPending)

	require.NoError(t, f.svc.Delete(context.Background(), l.ID, uuid.New(), true))
	assert.Len(t, f.media.calls, 1)
}

func TestRunExpirySweeper(t *testing.T) {
	f := setup(t)
	l := f.listing(t, domain.StatusApproved)
	f.clock = now.Add(DefaultListingTTL + time.Hour)

	// disabled interval returns at once
	f.svc.RunExpirySweeper(context.Background(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunExpirySweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		got, err := f.repo.GetListing(context.Background(), l.ID)
		return err == nil && got.Status == domain.StatusExpired
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
