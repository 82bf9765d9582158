package middleware

import (
	"classifieds-backend/internal/pkg/constants"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireRole allows only session users whose role is listed.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !constants.IsValidRole(user.Role) {
			return response.Forbidden(c, "Authorization error")
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return response.Forbidden(c, "User is Forbidden from performing this action")
	}
}

// RequireModerator is RequireRole(moderator, admin).
func RequireModerator() fiber.Handler {
	return RequireRole(constants.Moderator, constants.Admin)
}
