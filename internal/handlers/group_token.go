package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

// GroupTokenHandler lets the registration page check a link's token
type GroupTokenHandler struct {
	store storage.Store
	now   func() time.Time
}

// NewGroupTokenHandler creates a new group token handler
func NewGroupTokenHandler(store storage.Store, now func() time.Time) *GroupTokenHandler {
	if now == nil {
		now = time.Now
	}
	return &GroupTokenHandler{store: store, now: now}
}

// Validate reports which group an unexpired token belongs to
func (h *GroupTokenHandler) Validate(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}

	gt, err := h.store.GetValidGroupToken(c.UserContext(), token, h.now())
	if errors.Is(err, models.ErrTokenNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Token is invalid or expired",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate token",
		})
	}

	return c.JSON(fiber.Map{
		"valid":      true,
		"group_id":   gt.GroupID,
		"expires_at": gt.ExpiresAt,
	})
}

// Revoke deletes the caller's group registration link before it expires
func (h *GroupTokenHandler) Revoke(c *fiber.Ctx) error {
	groupID, ok := callerGroup(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is not bound to a group",
		})
	}

	token := c.Params("token")
	gt, err := h.store.GetValidGroupToken(c.UserContext(), token, h.now())
	if errors.Is(err, models.ErrTokenNotFound) || (err == nil && gt.GroupID != groupID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Token not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke token",
		})
	}

	if err := h.store.DeleteGroupToken(c.UserContext(), token); err != nil && !errors.Is(err, models.ErrTokenNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke token",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
