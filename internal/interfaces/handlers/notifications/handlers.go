package notifications

import (
	notifysvc "classifieds-backend/internal/application/notifications"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/middleware"
	"classifieds-backend/internal/pkg/constants"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Handlers struct {
	Service *notifysvc.Service
}

// GET /api/v1/notifications?limit=
// Moderators and admins also receive the shared admin inbox.
func (h *Handlers) List(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	mine, err := h.Service.ListForAccount(c.UserContext(), user.ID(), limit)
	if err != nil {
		return response.FromError(c, err)
	}
	data := fiber.Map{"user": mine}
	meta := fiber.Map{"user_count": len(mine)}
	if constants.CanModerate(user.Role) {
		admin, err := h.Service.ListAdmin(c.UserContext(), limit)
		if err != nil {
			return response.FromError(c, err)
		}
		data["admin"] = admin
		meta["admin_count"] = len(admin)
	} else {
		data["admin"] = []domain.Notification{}
	}
	return response.Success(c, "Notifications fetched successfully", data, meta)
}

// POST /api/v1/notifications/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid notification id")
	}
	user := middleware.GetUser(c)
	if err := h.Service.MarkRead(c.UserContext(), id, user.ID(), constants.CanModerate(user.Role)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Notification marked as read", fiber.Map{"id": id}, nil)
}
