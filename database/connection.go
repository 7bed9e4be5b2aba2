package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ananth-NQI/narasumber-backend/internal/config"
	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

var DB *gorm.DB

// DSN builds the PostgreSQL connection string for the configured deployment
func DSN(cfg *config.Config) string {
	if cfg.InstanceConnectionName != "" {
		// Production: Cloud SQL via Unix socket
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.InstanceConnectionName, cfg.DBUser, cfg.DBPass, cfg.DBName)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
}

// Connect opens the database and runs migrations
func Connect(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	if cfg.InstanceConnectionName != "" {
		log.Infof("Connecting to Cloud SQL via socket: %s", cfg.InstanceConnectionName)
	} else {
		log.Infof("Connecting to PostgreSQL at %s:%s", cfg.DBHost, cfg.DBPort)
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	db, err := gorm.Open(postgres.Open(DSN(cfg)), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("✅ Database connected successfully!")

	log.Info("🔄 Running database migrations...")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.GroupKeyword{},
		&models.GroupToken{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Info("✅ Database migrations completed!")

	DB = db
	return db, nil
}
