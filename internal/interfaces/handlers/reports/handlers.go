package reports

import (
	reportsvc "classifieds-backend/internal/application/reports"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/middleware"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *reportsvc.Service
}

// GET /api/v1/reports/reasons
func (h *Handlers) Reasons(c *fiber.Ctx) error {
	return response.Success(c, "Report reasons", domain.ReportReasons, nil)
}

// POST /api/v1/listings/:id/report {reason, details, city}
// 201 for a new report, 200 when the account already reported this listing.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid listing id")
	}
	var in reportsvc.SubmitInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	user := middleware.GetUser(c)
	if in.City == "" {
		in.City = user.City
	}
	res, err := h.Service.Submit(c.UserContext(), id, user.ID(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	if res.AlreadyReported {
		return response.Success(c, "Listing already reported", res.Report, fiber.Map{"alreadyReported": true})
	}
	return response.SuccessCreated(c, "Report submitted", res.Report, fiber.Map{"alreadyReported": false})
}
