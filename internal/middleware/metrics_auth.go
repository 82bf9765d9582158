package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// MetricsAuth guards /metrics with HTTP basic auth. Empty credentials leave it open.
func MetricsAuth(username, password string) fiber.Handler {
	if username == "" && password == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return basicauth.New(basicauth.Config{
		Users: map[string]string{username: password},
		Realm: "metrics",
	})
}
