package engagement

import (
	engsvc "classifieds-backend/internal/application/engagement"
	listsvc "classifieds-backend/internal/application/listings"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/middleware"
	"classifieds-backend/internal/pkg/constants"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service  *engsvc.Service
	Listings *listsvc.Service
}

type interactionRequest struct {
	City string `json:"city"`
}

// interaction resolves the listing id, the acting account (uuid.Nil when anonymous) and the city.
// The body city wins over the session city. A non-empty problem is the 400 message.
func interaction(c *fiber.Ctx) (id, viewer uuid.UUID, city, problem string) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, "", "Invalid listing id"
	}
	var req interactionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return uuid.Nil, uuid.Nil, "", "Invalid request body"
		}
	}
	city = req.City
	if user := middleware.GetUser(c); user != nil {
		viewer = user.ID()
		if city == "" {
			city = user.City
		}
	}
	return id, viewer, city, ""
}

// POST /api/v1/listings/:id/view (session required: views are counted once per account)
func (h *Handlers) View(c *fiber.Ctx) error {
	id, viewer, city, problem := interaction(c)
	if problem != "" {
		return response.BadRequest(c, problem)
	}
	counted, err := h.Service.RecordView(c.UserContext(), id, viewer, city)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "View recorded", fiber.Map{"counted": counted}, nil)
}

// POST /api/v1/listings/:id/click
func (h *Handlers) Click(c *fiber.Ctx) error {
	id, viewer, city, problem := interaction(c)
	if problem != "" {
		return response.BadRequest(c, problem)
	}
	if err := h.Service.RecordClick(c.UserContext(), id, viewer, city); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Click recorded", fiber.Map{"counted": true}, nil)
}

// POST /api/v1/listings/:id/share
func (h *Handlers) Share(c *fiber.Ctx) error {
	id, viewer, city, problem := interaction(c)
	if problem != "" {
		return response.BadRequest(c, problem)
	}
	if err := h.Service.RecordShare(c.UserContext(), id, viewer, city); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Share recorded", fiber.Map{"counted": true}, nil)
}

// POST /api/v1/listings/:id/favorite
func (h *Handlers) Favorite(c *fiber.Ctx) error {
	id, account, _, problem := interaction(c)
	if problem != "" {
		return response.BadRequest(c, problem)
	}
	if err := h.Service.Favorite(c.UserContext(), id, account); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing saved", fiber.Map{"id": id}, nil)
}

// DELETE /api/v1/listings/:id/favorite
func (h *Handlers) Unfavorite(c *fiber.Ctx) error {
	id, account, _, problem := interaction(c)
	if problem != "" {
		return response.BadRequest(c, problem)
	}
	if err := h.Service.Unfavorite(c.UserContext(), id, account); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing removed from saved", fiber.Map{"id": id}, nil)
}

// GET /api/v1/listings/:id/stats (owner, moderators and admins)
func (h *Handlers) Stats(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid listing id")
	}
	user := middleware.GetUser(c)
	listing, err := h.Listings.GetListing(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	if !listing.OwnedBy(user.ID()) && !constants.CanModerate(user.Role) {
		return response.FromError(c, domain.ErrUnauthorized)
	}
	st, err := h.Service.GetStats(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing stats fetched successfully", st, nil)
}
