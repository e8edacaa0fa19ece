package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/pkg/config"
)

// Migrator applies the SQL files under the configured migrations source.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// NewMigrator opens a migrate instance for cfg.
func NewMigrator(cfg config.DatabaseConfig, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	source := cfg.MigrationsPath
	if source == "" {
		source = "file://migrations"
	}
	m, err := migrate.New(source, URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies all pending migrations.
func (mg *Migrator) Up() error {
	return mg.run("up", mg.m.Up)
}

// Down rolls back a single migration step.
func (mg *Migrator) Down() error {
	return mg.run("down", func() error { return mg.m.Steps(-1) })
}

// Version reports the current schema version.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (mg *Migrator) run(direction string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("migrations already current", zap.String("direction", direction))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	version, _, _ := mg.Version()
	mg.logger.Info("migrations applied", zap.String("direction", direction), zap.Uint("version", version))
	return nil
}
