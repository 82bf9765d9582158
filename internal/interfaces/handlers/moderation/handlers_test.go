package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"classifieds-backend/internal/application/events"
	"classifieds-backend/internal/application/media"
	modsvc "classifieds-backend/internal/application/moderation"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/infrastructure/database"
	"classifieds-backend/internal/infrastructure/database/dbtest"
	"classifieds-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupModeration(t *testing.T) (*fiber.App, domain.ListingRepository, *events.Recorder) {
	repo := database.NewRepository(dbtest.Open(t))
	rec := &events.Recorder{}
	h := &Handlers{Service: modsvc.NewService(repo, rec, media.Nop{})}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetUser(c, &middleware.SessionUser{AccountID: uuid.NewString(), Role: "moderator"})
		return c.Next()
	})
	app.Post("/moderation/:id/approve", h.Approve)
	app.Post("/moderation/:id/refuse", h.Refuse)
	app.Post("/moderation/:id/suspend", h.Suspend)
	app.Post("/moderation/:id/expire", h.Expire)
	return app, repo, rec
}

func pendingListing(t *testing.T, repo domain.ListingRepository) *domain.Listing {
	l := &domain.Listing{
		HumanID:        "POST" + uuid.NewString()[:6],
		OwnerAccountID: uuid.New(),
		Title:          "Lamp",
		Slug:           "lamp",
		Status:         domain.StatusPending,
		PostedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.CreateListing(context.Background(), l))
	return l
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestRefuse_KeepsReasonVerbatim(t *testing.T) {
	app, repo, rec := setupModeration(t)
	l := pendingListing(t, repo)

	code, out := post(t, app, "/moderation/"+l.ID.String()+"/refuse", `{"reason":"  Blurry photos.  "}`)
	require.Equal(t, fiber.StatusOK, code, out)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "refused", data["status"])
	assert.Equal(t, "  Blurry photos.  ", data["refusal_reason"])
	assert.Equal(t, []events.Kind{events.ListingRefused}, rec.Kinds())
}

func TestModeration_Errors(t *testing.T) {
	app, repo, _ := setupModeration(t)
	l := pendingListing(t, repo)
	id := l.ID.String()

	code, _ := post(t, app, "/moderation/not-a-uuid/approve", "")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = post(t, app, "/moderation/"+uuid.NewString()+"/approve", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = post(t, app, "/moderation/"+id+"/suspend", `{"reason":"   "}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = post(t, app, "/moderation/"+id+"/expire", "")
	assert.Equal(t, fiber.StatusConflict, code, "only approved listings expire")

	code, _ = post(t, app, "/moderation/"+id+"/approve", "")
	assert.Equal(t, fiber.StatusOK, code)
	code, _ = post(t, app, "/moderation/"+id+"/approve", "")
	assert.Equal(t, fiber.StatusConflict, code)
}
