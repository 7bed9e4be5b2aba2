package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/services"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

const similarQuestionLimit = 10

// QuestionHandler serves the "similar questions" page linked from the chat
type QuestionHandler struct {
	store   storage.Store
	matcher *services.KeywordMatcher
	log     *logrus.Logger
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(store storage.Store, matcher *services.KeywordMatcher, log *logrus.Logger) *QuestionHandler {
	return &QuestionHandler{store: store, matcher: matcher, log: log}
}

// Similar lists stored questions sharing the group's keywords with the query
func (h *QuestionHandler) Similar(c *fiber.Ctx) error {
	groupID := c.Query("group_id")
	query := strings.TrimSpace(c.Query("query"))
	if groupID == "" || query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "group_id and query are required",
		})
	}

	keywords, err := h.matcher.Keywords(c.UserContext(), groupID)
	if err != nil {
		h.log.WithError(err).Error("❌ Failed to load keywords")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load keywords",
		})
	}

	matched := services.MatchKeywords(query, keywords)
	questions := []*models.Question{}
	if len(matched) > 0 {
		found, err := h.store.FindQuestionsMatchingKeywords(c.UserContext(), matched, similarQuestionLimit)
		if err != nil {
			h.log.WithError(err).Error("❌ Failed to search questions")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to search questions",
			})
		}
		questions = append(questions, found...)
	}

	return c.JSON(fiber.Map{
		"keywords":  matched,
		"questions": questions,
	})
}
