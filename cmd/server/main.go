package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-factures/internal/config"
	"github.com/diewo77/go-factures/internal/db"
	"github.com/diewo77/go-factures/internal/logging"
	"github.com/diewo77/go-factures/internal/server"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.App.Dev)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	conn, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	if *migrateOnlyFlag {
		if err := migrate(conn, cfg); err != nil {
			return err
		}
		slog.Info("migrations completed")
		return nil
	}
	if *seedOnlyFlag {
		if err := seed(conn, cfg); err != nil {
			return err
		}
		slog.Info("seeding completed")
		return nil
	}

	if err := migrate(conn, cfg); err != nil {
		return err
	}
	if cfg.App.Seed {
		if err := seed(conn, cfg); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(conn, cfg),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		slog.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

// migrate uses the versioned SQL files when MIGRATIONS is set and
// AutoMigrate otherwise.
func migrate(conn *gorm.DB, cfg *config.Config) error {
	if cfg.App.Migrations && cfg.Database.Driver != "sqlite" {
		return db.RunSQLMigrations(db.DefaultMigrationsDir, cfg.Database.DSN())
	}
	return db.Migrate(conn)
}

func seed(conn *gorm.DB, cfg *config.Config) error {
	return db.Seed(conn, db.SeedOptions{
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
	})
}
