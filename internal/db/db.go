// Package db opens the database and keeps its schema and seed data current.
package db

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)|(://[^:/@]+:)([^@]+)(@)`)

// MaskDSN hides the password of a key=value or URL DSN.
func MaskDSN(dsn string) string {
	return passwordRegex.ReplaceAllString(dsn, "${1}${3}***${5}")
}

// Dialector returns the gorm dialector for the configured driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(NormalizeDSN(cfg.DSN())), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// GormConfig silences gorm unless debug is set.
func GormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{Logger: logger.Default.LogMode(level)}
}

// Connect opens the database, retrying while it comes up, and checks it with SELECT 1.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("connecting to database", "driver", cfg.Driver, "dsn", MaskDSN(cfg.DSN()))
	return open(dialector, GormConfig(cfg.Debug), connectAttempts, 2*time.Second)
}

func open(dialector gorm.Dialector, gcfg *gorm.Config, attempts int, wait time.Duration) (*gorm.DB, error) {
	var conn *gorm.DB
	var err error
	for i := 1; i <= attempts; i++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		slog.Warn("database not ready", "attempt", i, "of", attempts, "error", err)
		if i < attempts {
			time.Sleep(wait)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", attempts, err)
	}
	if err := Ping(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Ping runs SELECT 1.
func Ping(conn *gorm.DB) error {
	if err := conn.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// AllModels lists every persisted model in dependency order.
func AllModels() []any {
	return []any{
		// Auth & Authorization
		&models.Permission{},
		&models.Profile{},
		&models.User{},
		// Catalog
		&models.Category{},
		&models.Product{},
		// Orders & invoices
		&models.Order{},
		&models.OrderLine{},
		&models.Invoice{},
	}
}

// Migrate runs AutoMigrate for all models.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(AllModels()...)
}
