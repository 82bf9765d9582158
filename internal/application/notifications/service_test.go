package notifications

import (
	"context"
	"testing"

	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/infrastructure/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_UserAndAdmin(t *testing.T) {
	svc := &Service{DB: dbtest.Open(t)}
	ctx := context.Background()
	owner := uuid.New()
	listingID := uuid.New()

	_, err := svc.Notify(ctx, Notice{TargetType: domain.TargetUser, RecipientID: &owner, Kind: "listing.approved", ListingID: &listingID,
		Payload: map[string]interface{}{"title": "Bike"}})
	require.NoError(t, err)
	_, err = svc.Notify(ctx, Notice{TargetType: domain.TargetAdmin, Kind: "listing.pending", ListingID: &listingID})
	require.NoError(t, err)

	mine, err := svc.ListForAccount(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "listing.approved", mine[0].Kind)
	assert.JSONEq(t, `{"title":"Bike"}`, string(mine[0].Payload))

	admin, err := svc.ListAdmin(ctx, 10)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Nil(t, admin[0].RecipientID)
}

func TestNotify_RejectsBadTargets(t *testing.T) {
	svc := &Service{DB: dbtest.Open(t)}
	_, err := svc.Notify(context.Background(), Notice{TargetType: domain.TargetUser, Kind: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Notify(context.Background(), Notice{TargetType: "group", Kind: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMarkRead(t *testing.T) {
	svc := &Service{DB: dbtest.Open(t)}
	ctx := context.Background()
	owner := uuid.New()
	n, err := svc.Notify(ctx, Notice{TargetType: domain.TargetUser, RecipientID: &owner, Kind: "listing.refused"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(ctx, n.ID, uuid.New(), false), domain.ErrUnauthorized)
	require.NoError(t, svc.MarkRead(ctx, n.ID, owner, false))
	mine, err := svc.ListForAccount(ctx, owner, 0)
	require.NoError(t, err)
	require.NotNil(t, mine[0].ReadAt)

	assert.ErrorIs(t, svc.MarkRead(ctx, uuid.New(), owner, false), domain.ErrNotFound)
}
