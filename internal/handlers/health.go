package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/narasumber-backend/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version    string
	dispatcher *services.Dispatcher
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, dispatcher *services.Dispatcher) *HealthHandler {
	return &HealthHandler{
		Version:    version,
		dispatcher: dispatcher,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":             "OK",
		"service":            "Narasumber Backend",
		"version":            h.Version,
		"active_sessions":    h.dispatcher.Sessions().ActiveCount(),
		"pending_selections": h.dispatcher.PendingCount(),
	})
}
