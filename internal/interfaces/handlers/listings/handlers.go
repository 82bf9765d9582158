package listings

import (
	listsvc "classifieds-backend/internal/application/listings"
	"classifieds-backend/internal/application/moderation"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/middleware"
	"classifieds-backend/internal/pkg/constants"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Listings   *listsvc.Service
	Moderation *moderation.Service
}

func listingID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func invalidID(c *fiber.Ctx) error {
	return response.BadRequest(c, "Invalid listing id")
}

// POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	var in listsvc.CreateListingInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	listing, err := h.Listings.CreateListing(c.UserContext(), user.ID(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing submitted for review", listing, nil)
}

// GET /api/v1/listings/mine
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	out, err := h.Listings.ListOwnerListings(c.UserContext(), user.ID())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.List(c, "Listings fetched successfully", out, len(out))
}

// GET /api/v1/listings/:id
// Inactive listings are visible only to their owner and moderators.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return invalidID(c)
	}
	listing, err := h.Listings.GetListing(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	if !listing.IsActive {
		user := middleware.GetUser(c)
		if user == nil || (!listing.OwnedBy(user.ID()) && !constants.CanModerate(user.Role)) {
			return response.FromError(c, domain.ErrNotFound)
		}
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/listings/:id/events
func (h *Handlers) ListEvents(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return invalidID(c)
	}
	user := middleware.GetUser(c)
	out, err := h.Listings.ListEvents(c.UserContext(), id, user.ID(), user.Role == constants.Admin)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.List(c, "Listing events fetched successfully", out, len(out))
}

// POST /api/v1/listings/:id/repost
func (h *Handlers) Repost(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return invalidID(c)
	}
	var in moderation.RepostInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	listing, err := h.Moderation.Repost(c.UserContext(), id, middleware.GetUser(c).ID(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing reposted", listing, nil)
}

// POST /api/v1/listings/:id/mark-sold
func (h *Handlers) MarkSold(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return invalidID(c)
	}
	listing, err := h.Moderation.MarkSold(c.UserContext(), id, middleware.GetUser(c).ID())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing marked as sold", listing, nil)
}

// DELETE /api/v1/listings/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return invalidID(c)
	}
	user := middleware.GetUser(c)
	if err := h.Moderation.Delete(c.UserContext(), id, user.ID(), user.Role == constants.Admin); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing deleted", fiber.Map{"id": id}, nil)
}
