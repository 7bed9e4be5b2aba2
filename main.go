package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Ananth-NQI/narasumber-backend/database"
	"github.com/Ananth-NQI/narasumber-backend/internal/config"
	"github.com/Ananth-NQI/narasumber-backend/internal/jobs"
	"github.com/Ananth-NQI/narasumber-backend/internal/logger"
	"github.com/Ananth-NQI/narasumber-backend/internal/routes"
	"github.com/Ananth-NQI/narasumber-backend/internal/services"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.LogLevel)
	utils.CountryCode = cfg.CountryCode

	// Initialize storage
	var store storage.Store
	if cfg.UseMemoryStore {
		log.Warn("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Info("📦 Connecting to PostgreSQL database...")
		db, err := database.Connect(cfg, log)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		store = storage.NewDatabaseStore(db)
		log.Info("✅ Using PostgreSQL database storage")
	}

	transport, bridge := newTransport(cfg, log)

	// Conversation state lives in memory only
	sessions := services.NewSessionRegistry(services.NewMemorySessionStore(), time.Now, cfg.DefaultSessionMinutes, log)
	continuations := services.NewMemoryContinuationStore()
	verified := services.NewMemoryVerifiedSet()

	matcher := services.NewKeywordMatcher(store)
	selection := services.NewSelectionFlow(store, transport, continuations, time.Now, log)
	admin := services.NewAdminService(store, sessions, time.Now, services.AdminConfig{
		TokenTTL:    cfg.GroupTokenTTL,
		FrontendURL: cfg.FrontendURL,
		Location:    cfg.Location(),
	}, log)

	dispatcher := services.NewDispatcher(services.DispatcherDeps{
		Store:         store,
		Transport:     transport,
		Sessions:      sessions,
		Continuations: continuations,
		Matcher:       matcher,
		Selection:     selection,
		Admin:         admin,
		Verified:      verified,
		FrontendURL:   cfg.FrontendURL,
		PendingTTL:    cfg.PendingSelectionTTL,
		Now:           time.Now,
		Log:           log,
	})

	cleanup := jobs.NewCleanupJob(store, continuations, cfg.CleanupInterval, cfg.PendingSelectionTTL, log)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Narasumber Backend v" + routes.Version,
		DisableStartupMessage: cfg.IsProduction(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Config:     cfg,
		Store:      store,
		Dispatcher: dispatcher,
		Matcher:    matcher,
		Verified:   verified,
		Log:        log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("========================================")
	log.Infof("🚀 Narasumber Backend starting on port %s", cfg.Port)
	log.Infof("🌍 Environment: %s", cfg.Environment)
	log.Infof("📱 WhatsApp: %s", transportName(cfg))
	log.Infof("⏱️  Default session: %d minutes", cfg.DefaultSessionMinutes)
	log.Info("========================================")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("🛑 Gracefully shutting down...")
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error {
		return cleanup.Run(gctx)
	})
	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx, dispatcher.Handle)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Info("👋 Bye")
}

// newTransport picks the outbound channel: the WhatsApp Web bridge when
// configured (groups need it), else Twilio, else log-only.
func newTransport(cfg *config.Config, log *logrus.Logger) (services.Transport, *services.BridgeTransport) {
	if cfg.BridgeURL != "" {
		bridge := services.NewBridgeTransport(cfg.BridgeURL, cfg.BridgeToken, services.BridgeOptions{}, log)
		return bridge, bridge
	}

	twilioService, err := services.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, log)
	if err == nil {
		log.Info("✅ Twilio service initialized (individual chats only)")
		return twilioService, nil
	}

	log.WithError(err).Warn("⚠️  No WhatsApp transport configured, replies will only be logged")
	return services.LogTransport{Log: log}, nil
}

func transportName(cfg *config.Config) string {
	switch {
	case cfg.BridgeURL != "":
		return "WhatsApp Web bridge"
	case cfg.TwilioAccountSID != "":
		return "Twilio"
	default:
		return "Not configured"
	}
}
