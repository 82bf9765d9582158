package response

import (
	"errors"

	"classifieds-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// errorStatus maps domain sentinels to HTTP status codes. Order matters only for wrapped chains.
var errorStatus = []struct {
	err  error
	code int
}{
	{domain.ErrNotFound, fiber.StatusNotFound},
	{domain.ErrInvalidState, fiber.StatusConflict},
	{domain.ErrAccountInactive, fiber.StatusForbidden},
	{domain.ErrQuotaExceeded, fiber.StatusForbidden},
	{domain.ErrPlanNotFound, fiber.StatusConflict},
	{domain.ErrInvalidReason, fiber.StatusBadRequest},
	{domain.ErrValidation, fiber.StatusBadRequest},
	{domain.ErrRateLimited, fiber.StatusTooManyRequests},
	{domain.ErrUnauthorized, fiber.StatusForbidden},
	{domain.ErrStorage, fiber.StatusServiceUnavailable},
}

// StatusFor returns the HTTP status for err, 500 when it wraps no known sentinel.
func StatusFor(err error) int {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return fiber.StatusInternalServerError
}

// FromError writes err in the standard error format. Unmapped errors are logged and hidden.
func FromError(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return Error(c, "Internal Server Error", code, nil)
	}
	if code == fiber.StatusServiceUnavailable {
		log.Warn().Err(err).Str("path", c.Path()).Msg("storage unavailable")
	}
	return Error(c, err.Error(), code, nil)
}
