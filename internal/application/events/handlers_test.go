package events

import (
	"context"
	"testing"
	"time"

	"classifieds-backend/internal/application/emails"
	"classifieds-backend/internal/application/notifications"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/infrastructure/database/dbtest"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	pending, approved, refused []string
	reason                     string
}

func (f *fakeSender) SendListingPending(_ context.Context, to string, _ emails.ListingMail) error {
	f.pending = append(f.pending, to)
	return nil
}

func (f *fakeSender) SendListingApproved(_ context.Context, to, _ string, _ emails.ListingMail) error {
	f.approved = append(f.approved, to)
	return nil
}

func (f *fakeSender) SendListingRefused(_ context.Context, to, _ string, _ emails.ListingMail, reason string) error {
	f.refused = append(f.refused, to)
	f.reason = reason
	return nil
}

type accounts map[uuid.UUID]*domain.Account

func (a accounts) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	if acc, ok := a[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrNotFound
}

func TestEmailHandler_RoutesByKind(t *testing.T) {
	owner := uuid.New()
	sender := &fakeSender{}
	h := &EmailHandler{
		Sender:     sender,
		Accounts:   accounts{owner: {ID: owner, Email: "owner@x.io", Name: "Ann"}},
		AdminEmail: "mod@x.io",
	}
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, h.Handle(ctx, New(ListingPending, domain.TargetAdmin, nil, uuid.New(), nil, now)))
	require.NoError(t, h.Handle(ctx, New(ListingApproved, domain.TargetUser, &owner, uuid.New(), nil, now)))
	require.NoError(t, h.Handle(ctx, New(ListingRefused, domain.TargetUser, &owner, uuid.New(),
		map[string]interface{}{"reason": "Blurry photos, please retake"}, now)))
	require.NoError(t, h.Handle(ctx, New(ListingSuspended, domain.TargetUser, &owner, uuid.New(), nil, now)))

	assert.Equal(t, []string{"mod@x.io"}, sender.pending)
	assert.Equal(t, []string{"owner@x.io"}, sender.approved)
	assert.Equal(t, []string{"owner@x.io"}, sender.refused)
	assert.Equal(t, "Blurry photos, please retake", sender.reason)

	missing := uuid.New()
	assert.Error(t, h.Handle(ctx, New(ListingApproved, domain.TargetUser, &missing, uuid.New(), nil, now)))
}

func TestNotificationHandler_Persists(t *testing.T) {
	svc := &notifications.Service{DB: dbtest.Open(t)}
	h := &NotificationHandler{Notifier: svc}
	owner := uuid.New()

	require.NoError(t, h.Handle(context.Background(), New(ListingApproved, domain.TargetUser, &owner, uuid.New(), nil, time.Now())))
	got, err := svc.ListForAccount(context.Background(), owner, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, string(ListingApproved), got[0].Kind)
}

func TestStreamHandler_XAdd(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := &StreamHandler{Client: rdb, Stream: "listing-events"}
	e := New(ListingExpired, domain.TargetUser, nil, uuid.New(), map[string]interface{}{"human_id": "POST004"}, time.Now())
	require.NoError(t, h.Handle(context.Background(), e))

	msgs, err := rdb.XRange(context.Background(), "listing-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "listing.expired", msgs[0].Values["kind"])
	assert.Equal(t, e.ListingID.String(), msgs[0].Values["listing_id"])
	assert.JSONEq(t, `{"human_id":"POST004"}`, msgs[0].Values["payload"].(string))
}
