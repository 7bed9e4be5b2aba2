package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/middleware"
	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

// KeywordHandler manages a group's duplicate-detection keywords.
// The group always comes from the caller's token.
type KeywordHandler struct {
	store storage.Store
	log   *logrus.Logger
}

// NewKeywordHandler creates a new keyword handler
func NewKeywordHandler(store storage.Store, log *logrus.Logger) *KeywordHandler {
	return &KeywordHandler{store: store, log: log}
}

type createKeywordRequest struct {
	Keyword string `json:"keyword"`
}

func callerGroup(c *fiber.Ctx) (string, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok || claims.GroupID == "" {
		return "", false
	}
	return claims.GroupID, true
}

// Create adds a keyword to the caller's group
func (h *KeywordHandler) Create(c *fiber.Ctx) error {
	groupID, ok := callerGroup(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is not bound to a group",
		})
	}

	var req createKeywordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Keyword is required",
		})
	}

	keyword, err := h.store.CreateKeyword(c.UserContext(), &models.GroupKeyword{GroupID: groupID, Keyword: req.Keyword})
	if err != nil {
		h.log.WithError(err).Error("❌ Failed to create keyword")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create keyword",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(keyword)
}

// List returns the caller's group keywords
func (h *KeywordHandler) List(c *fiber.Ctx) error {
	groupID, ok := callerGroup(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is not bound to a group",
		})
	}

	keywords, err := h.store.GetKeywordsForGroup(c.UserContext(), groupID)
	if err != nil {
		h.log.WithError(err).Error("❌ Failed to load keywords")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load keywords",
		})
	}
	if keywords == nil {
		keywords = []*models.GroupKeyword{}
	}

	return c.JSON(keywords)
}

// Delete removes a keyword of the caller's group
func (h *KeywordHandler) Delete(c *fiber.Ctx) error {
	groupID, ok := callerGroup(c)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is not bound to a group",
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid keyword ID",
		})
	}

	err = h.store.DeleteKeyword(c.UserContext(), uint(id), groupID)
	if errors.Is(err, models.ErrKeywordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Keyword not found",
		})
	}
	if err != nil {
		h.log.WithError(err).Error("❌ Failed to delete keyword")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete keyword",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Keyword deleted",
	})
}
