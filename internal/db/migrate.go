package db

import (
	"errors"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// DefaultMigrationsDir is where the versioned SQL files live.
const DefaultMigrationsDir = "file://migrations"

// RunSQLMigrations applies the versioned SQL migrations in dir to the postgres database at dsn.
func RunSQLMigrations(dir, dsn string) error {
	m, err := migrate.New(dir, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("closing migrator", "source_error", srcErr, "db_error", dbErr)
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, err := m.Version()
	if err == nil {
		slog.Info("sql migrations applied", "version", version, "dirty", dirty)
	}
	return nil
}
