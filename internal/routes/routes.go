package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/config"
	"github.com/Ananth-NQI/narasumber-backend/internal/handlers"
	"github.com/Ananth-NQI/narasumber-backend/internal/middleware"
	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/services"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

// Version is reported by / and /health
const Version = "1.0.0"

// Dependencies are the components the HTTP surface exposes
type Dependencies struct {
	Config     *config.Config
	Store      storage.Store
	Dispatcher *services.Dispatcher
	Matcher    *services.KeywordMatcher
	Verified   services.VerifiedSet
	Log        *logrus.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	health := handlers.NewHealthHandler(Version, deps.Dispatcher)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":            "Welcome to Narasumber Backend!",
			"version":            Version,
			"active_sessions":    deps.Dispatcher.Sessions().ActiveCount(),
			"pending_selections": deps.Dispatcher.PendingCount(),
			"endpoints": fiber.Map{
				"health":        "/health",
				"api":           "/api",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
			},
		})
	})
	app.Get("/health", health.Check)

	// ========== WEBHOOK ROUTES ==========
	whatsapp := handlers.NewWhatsAppHandler(deps.Dispatcher, deps.Log)
	webhooks := app.Group("/webhook")

	if !cfg.IsProduction() || cfg.DisableWebhookValidation {
		webhooks.Post("/whatsapp", whatsapp.HandleWebhook)
		deps.Log.Warn("⚠️  WhatsApp webhook validation DISABLED")
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(cfg.TwilioAuthToken, deps.Log), whatsapp.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if !cfg.IsProduction() {
		app.Post("/test/whatsapp", whatsapp.HandleTestWebhook)
	}

	// ========== API ROUTES ==========
	api := app.Group("/api")

	tokens := handlers.NewGroupTokenHandler(deps.Store, nil)
	api.Get("/group-tokens/validate", tokens.Validate)

	questions := handlers.NewQuestionHandler(deps.Store, deps.Matcher, deps.Log)
	api.Get("/questions/similar", questions.Similar)

	verification := handlers.NewVerificationHandler(deps.Verified)
	api.Get("/verification/:phone", verification.Status)

	keywords := handlers.NewKeywordHandler(deps.Store, deps.Log)
	admin := api.Group("/group-keywords", middleware.RequireJWT(cfg.JWTSecret, models.RoleAdminGroup, models.RoleAdmin))
	admin.Post("/", keywords.Create)
	admin.Get("/", keywords.List)
	admin.Delete("/:id", keywords.Delete)

	api.Delete("/group-tokens/:token", middleware.RequireJWT(cfg.JWTSecret, models.RoleAdminGroup, models.RoleAdmin), tokens.Revoke)
}
