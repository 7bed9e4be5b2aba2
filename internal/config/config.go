package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the bot reads from the environment
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage
	UseMemoryStore         bool
	DBUser                 string
	DBPass                 string
	DBName                 string
	DBHost                 string
	DBPort                 string
	InstanceConnectionName string

	// Twilio
	TwilioAccountSID         string
	TwilioAuthToken          string
	TwilioWhatsAppFrom       string
	DisableWebhookValidation bool

	// WhatsApp Web bridge (needed for group chats)
	BridgeURL   string
	BridgeToken string

	FrontendURL string
	JWTSecret   string

	DefaultSessionMinutes int
	GroupTokenTTL         time.Duration
	PendingSelectionTTL   time.Duration
	CleanupInterval       time.Duration
	CountryCode           string
	Timezone              string
}

// Load reads .env files (local development only) and the process environment
func Load() (*Config, error) {
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			// Missing files are fine, the environment may already be populated
			_ = godotenv.Load("environments/.env.development")
		}
	}

	cfg := &Config{
		Port:                     os.Getenv("PORT"),
		Environment:              os.Getenv("ENVIRONMENT"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		UseMemoryStore:           os.Getenv("USE_MEMORY_STORE") == "true",
		DBUser:                   os.Getenv("DB_USER"),
		DBPass:                   os.Getenv("DB_PASS"),
		DBName:                   os.Getenv("DB_NAME"),
		DBHost:                   os.Getenv("DB_HOST"),
		DBPort:                   os.Getenv("DB_PORT"),
		InstanceConnectionName:   os.Getenv("INSTANCE_CONNECTION_NAME"),
		TwilioAccountSID:         os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:          os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom:       os.Getenv("TWILIO_WHATSAPP_FROM"),
		DisableWebhookValidation: os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true",
		BridgeURL:                strings.TrimSpace(os.Getenv("WA_BRIDGE_URL")),
		BridgeToken:              os.Getenv("WA_BRIDGE_TOKEN"),
		FrontendURL:              os.Getenv("FRONTEND_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		CountryCode:              os.Getenv("COUNTRY_CODE"),
		Timezone:                 os.Getenv("TIMEZONE"),
	}

	var err error
	if cfg.DefaultSessionMinutes, err = intEnv("DEFAULT_SESSION_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.DefaultSessionMinutes <= 0 {
		return nil, fmt.Errorf("DEFAULT_SESSION_MINUTES must be positive, got %d", cfg.DefaultSessionMinutes)
	}
	if cfg.GroupTokenTTL, err = durationEnv("GROUP_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PendingSelectionTTL, err = durationEnv("PENDING_SELECTION_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = durationEnv("CLEANUP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "narasumber"
	}
	if c.DBHost == "" {
		c.DBHost = "localhost"
	}
	if c.DBPort == "" {
		c.DBPort = "5432"
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000/"
	}
	if !strings.HasSuffix(c.FrontendURL, "/") {
		c.FrontendURL += "/"
	}
	if c.CountryCode == "" {
		c.CountryCode = "62"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Jakarta"
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
}

// IsProduction reports whether the bot runs in production (Cloud Run sets
// INSTANCE_CONNECTION_NAME)
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.InstanceConnectionName != ""
}

// Location resolves the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}
