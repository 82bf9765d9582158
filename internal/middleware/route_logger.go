package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouteLogger logs each request entry and exit with duration and status. The trace id
// comes from the request logger installed by Tracing.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := Logger(c)
		start := time.Now()
		logger.Debug().Str("method", c.Method()).Str("path", c.Path()).Msg("Entering request")
		err := c.Next()

		status := statusOf(c, err)
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Error().Err(err)
		case status >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("ms", time.Since(start).Milliseconds()).
			Msg("Exiting request")
		return err
	}
}
