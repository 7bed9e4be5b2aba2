package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/narasumber-backend/internal/services"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// VerificationHandler exposes numbers confirmed with !verifikasi
type VerificationHandler struct {
	verified services.VerifiedSet
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(verified services.VerifiedSet) *VerificationHandler {
	return &VerificationHandler{verified: verified}
}

// Status reports whether a phone number has been verified
func (h *VerificationHandler) Status(c *fiber.Ctx) error {
	phone := utils.NormalizePhone(c.Params("phone"))
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Phone number is required",
		})
	}

	return c.JSON(fiber.Map{
		"phone":    phone,
		"verified": h.verified.Contains(phone),
	})
}
