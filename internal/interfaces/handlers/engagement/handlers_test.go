package engagement

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	engsvc "classifieds-backend/internal/application/engagement"
	"classifieds-backend/internal/application/events"
	listsvc "classifieds-backend/internal/application/listings"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/infrastructure/database"
	"classifieds-backend/internal/infrastructure/database/dbtest"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngagement(t *testing.T) (*fiber.App, domain.ListingRepository, *domain.Listing) {
	repo := database.NewRepository(dbtest.Open(t))
	h := &Handlers{Service: engsvc.NewService(repo), Listings: listsvc.NewService(repo, &events.Recorder{})}

	now := time.Now().UTC()
	l := &domain.Listing{
		HumanID:        "POST" + uuid.NewString()[:6],
		OwnerAccountID: uuid.New(),
		Title:          "Bike",
		Slug:           "bike",
		Status:         domain.StatusApproved,
		IsActive:       true,
		PostedAt:       now,
	}
	require.NoError(t, repo.CreateListing(context.Background(), l))
	require.NoError(t, repo.CreateStats(context.Background(), domain.NewListingStats(l.ID, now)))

	app := fiber.New()
	app.Post("/listings/:id/click", h.Click)
	app.Post("/listings/:id/share", h.Share)
	return app, repo, l
}

func send(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestClick_MalformedBodyIsRejected(t *testing.T) {
	app, repo, l := setupEngagement(t)

	assert.Equal(t, fiber.StatusBadRequest, send(t, app, "/listings/"+l.ID.String()+"/click", `{"city":`))
	assert.Equal(t, fiber.StatusBadRequest, send(t, app, "/listings/"+l.ID.String()+"/share", `not json`))

	st, err := repo.GetStats(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Zero(t, st.Clicks)
	assert.Zero(t, st.Shares)
}

func TestClick_CountsCity(t *testing.T) {
	app, repo, l := setupEngagement(t)

	assert.Equal(t, fiber.StatusOK, send(t, app, "/listings/"+l.ID.String()+"/click", `{"city":"Lyon"}`))
	assert.Equal(t, fiber.StatusOK, send(t, app, "/listings/"+l.ID.String()+"/click", ``))
	assert.Equal(t, fiber.StatusBadRequest, send(t, app, "/listings/not-a-uuid/click", ``))

	st, err := repo.GetStats(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Clicks)
	assert.Equal(t, int64(1), st.ClicksByCity["Lyon"])
	assert.Equal(t, int64(1), st.ClicksByCity[domain.UnknownCity])
}
