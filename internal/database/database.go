package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sjperalta/pratiche-api/internal/models"
	pkgLogger "github.com/sjperalta/pratiche-api/pkg/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL, environment, logLevel string) (*gorm.DB, error) {
	gormLogger := pkgLogger.NewGormLogger(
		GormLogLevel(environment, logLevel),
		200*time.Millisecond,
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema of every persisted model
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.InterestRate{},
		&models.AmortizationPlan{},
		&models.Installment{},
		&models.LedgerEntry{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// GormLogLevel picks the statement log level: silent in production unless
// debug logging is requested.
func GormLogLevel(environment, logLevel string) logger.LogLevel {
	switch {
	case strings.EqualFold(logLevel, "debug"):
		return logger.Info
	case environment == "production":
		return logger.Silent
	case strings.EqualFold(logLevel, "error"):
		return logger.Error
	default:
		return logger.Warn
	}
}
