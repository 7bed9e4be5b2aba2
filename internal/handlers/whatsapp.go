package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	dispatcher *services.Dispatcher
	log        *logrus.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(dispatcher *services.Dispatcher, log *logrus.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		dispatcher: dispatcher,
		log:        log,
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // whatsapp:+6281234567890
	To         string `form:"To"`   // Twilio sender number
	Body       string `form:"Body"`
	NumMedia   string `form:"NumMedia"`
}

// HandleWebhook processes incoming Twilio WhatsApp messages.
// Twilio only delivers one-to-one chats.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.log.WithError(err).Warn("Error parsing webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no body
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	from := services.ContactAddress(payload.From)
	h.dispatcher.Handle(c.UserContext(), &models.InboundMessage{
		ConversationID: from,
		SenderID:       from,
		Body:           payload.Body,
	})

	return c.SendStatus(fiber.StatusOK)
}

// HandleTestWebhook processes a message for development and returns the
// replies instead of sending them
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var msg models.InboundMessage
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if msg.ConversationID == "" || strings.TrimSpace(msg.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "conversation_id and body are required",
		})
	}
	if msg.SenderID == "" {
		msg.SenderID = msg.ConversationID
	}

	h.log.WithFields(logrus.Fields{"conversation": msg.ConversationID, "body": msg.Body}).Info("🧪 Test webhook received")

	ctx, rec := services.WithReplyRecorder(c.UserContext())
	h.dispatcher.Handle(ctx, &msg)

	return c.JSON(fiber.Map{
		"success": true,
		"replies": rec.Messages(),
	})
}
