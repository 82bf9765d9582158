package health

import (
	"crypto/subtle"

	healthsvc "classifieds-backend/internal/application/health"
	"classifieds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "classifieds-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Collector      *healthsvc.Collector
	HealthAdminKey string
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || h.HealthAdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.HealthAdminKey)) != 1 {
		return response.Forbidden(c, "Unauthorized")
	}
	if h.Collector.Redis == nil {
		return response.Error(c, "Redis is not configured", fiber.StatusServiceUnavailable, nil)
	}
	if err := h.Collector.Reset(c.UserContext()); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns health data: service + status, runtime, traffic, dependencies, event queue.
// Responds 503 when a dependency is down so load balancers can act on it.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.Collector.Collect(c.UserContext())
	code := fiber.StatusOK
	if result.Status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
		"events":       result.Events,
	})
}

// Errors returns the last 50 5xx entries recorded by the health marker.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if h.Collector.Redis == nil {
		return c.JSON([]interface{}{})
	}
	entries, err := h.Collector.RecentErrors(c.UserContext(), 50)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	return c.JSON(entries)
}
