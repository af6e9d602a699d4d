package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed *.sql
var migrationFiles embed.FS

// Run applies all pending migrations to the database. Migration files
// are embedded in the binary, so no migrations directory is needed at
// runtime.
func Run(db *sql.DB, logger zerolog.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite3 driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	logger.Info().Msg("Running database migrations")
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info().Msg("Database is already up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		logger.Info().Msg("Database migrations applied successfully")
	}

	return nil
}
