package database

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/samnmbuguah/FundingRate/internal/logger"
)

// Migrator applies SQL migrations from a directory of versioned files.
type Migrator struct {
	migrate *migrate.Migrate
}

// NewMigrator creates a migrator bound to the given connection.
func NewMigrator(db *DB, migrationsPath string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{migrate: m}, nil
}

// Up applies all pending migrations. An already up-to-date schema is not an
// error.
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

// Down rolls back all migrations.
func (m *Migrator) Down() error {
	if err := m.migrate.Down(); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	logger.Info("database migrations rolled back")
	return nil
}

// Version returns the current migration version. A dirty schema is reported
// as an error so operators notice before the next deploy.
func (m *Migrator) Version() (uint, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("database is in dirty state at version %d", version)
	}
	return version, nil
}

// Force sets the recorded version without running migrations.
func (m *Migrator) Force(version int) error {
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force migration version: %w", err)
	}
	logger.Info("forced migration version", "version", version)
	return nil
}

// Drop removes the entire schema.
func (m *Migrator) Drop() error {
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	logger.Info("database schema dropped")
	return nil
}

// Close releases the migrator's resources.
func (m *Migrator) Close() error {
	if _, err := m.migrate.Close(); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	return nil
}
