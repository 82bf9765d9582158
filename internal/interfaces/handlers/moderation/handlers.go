package moderation

import (
	modsvc "classifieds-backend/internal/application/moderation"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/middleware"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers expose the moderator actions. Routes are guarded by middleware.RequireModerator.
type Handlers struct {
	Service *modsvc.Service
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) target(c *fiber.Ctx) (uuid.UUID, *uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, nil, false
	}
	moderator := middleware.GetUser(c).ID()
	return id, &moderator, true
}

// reason is passed through verbatim; the owner sees exactly what the moderator typed.
func reason(c *fiber.Ctx) (string, bool) {
	var req reasonRequest
	if err := c.BodyParser(&req); err != nil {
		return "", false
	}
	return req.Reason, true
}

func done(c *fiber.Ctx, message string, l *domain.Listing, err error) error {
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, message, l, nil)
}

// POST /api/v1/moderation/:id/approve
func (h *Handlers) Approve(c *fiber.Ctx) error {
	id, moderator, ok := h.target(c)
	if !ok {
		return response.BadRequest(c, "Invalid listing id")
	}
	l, err := h.Service.Approve(c.UserContext(), id, moderator)
	return done(c, "Listing approved", l, err)
}

// POST /api/v1/moderation/:id/refuse {reason}
func (h *Handlers) Refuse(c *fiber.Ctx) error {
	id, moderator, ok := h.target(c)
	if !ok {
		return response.BadRequest(c, "Invalid listing id")
	}
	why, ok := reason(c)
	if !ok {
		return response.BadRequest(c, "Invalid request body")
	}
	l, err := h.Service.Refuse(c.UserContext(), id, why, moderator)
	return done(c, "Listing refused", l, err)
}

// POST /api/v1/moderation/:id/suspend {reason}
func (h *Handlers) Suspend(c *fiber.Ctx) error {
	id, moderator, ok := h.target(c)
	if !ok {
		return response.BadRequest(c, "Invalid listing id")
	}
	why, ok := reason(c)
	if !ok {
		return response.BadRequest(c, "Invalid request body")
	}
	l, err := h.Service.Suspend(c.UserContext(), id, why, moderator)
	return done(c, "Listing suspended", l, err)
}

// POST /api/v1/moderation/:id/expire
func (h *Handlers) Expire(c *fiber.Ctx) error {
	id, _, ok := h.target(c)
	if !ok {
		return response.BadRequest(c, "Invalid listing id")
	}
	l, err := h.Service.Expire(c.UserContext(), id)
	return done(c, "Listing expired", l, err)
}
