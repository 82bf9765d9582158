package uploads

import (
	"errors"

	"classifieds-backend/internal/application/media"
	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/middleware"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service. A nil Service means no signing backend is configured.
type Handlers struct {
	Service *media.UploadService
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// ListingPhoto POST /api/v1/uploads/listing-photo
func (h *Handlers) ListingPhoto(c *fiber.Ctx) error {
	if h.Service == nil || h.Service.Signer == nil {
		return response.Error(c, "Uploads are not configured", fiber.StatusServiceUnavailable, nil)
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.BadRequest(c, "file_name is required")
	}

	user := middleware.GetUser(c)
	res, err := h.Service.ListingPhotoUploadURL(c.UserContext(), user.ID(), req.FileName)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.FromError(c, err)
		}
		log.Error().Err(err).Str("account_id", user.AccountID).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusBadGateway, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
