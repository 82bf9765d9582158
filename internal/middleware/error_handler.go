package middleware

import (
	"errors"

	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Returns the standard error format.
// Domain errors that escape a handler are mapped the same way handlers map them.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Message, fe.Code, nil)
	}
	if code := response.StatusFor(err); code != fiber.StatusInternalServerError {
		return response.Error(c, err.Error(), code, nil)
	}
	Logger(c).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// statusOf is the status the client will see: the written status, or what ErrorHandler maps err to.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return response.StatusFor(err)
}
