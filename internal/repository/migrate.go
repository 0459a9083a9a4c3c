package repository

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/jmylchreest/tvrec/internal/database/migrations"
)

// NewMigrator returns a migrator with every tvrec migration registered.
func NewMigrator(db *gorm.DB, logger *slog.Logger) *migrations.Migrator {
	m := migrations.NewMigrator(db, logger)
	m.RegisterAll(migrations.AllMigrations())
	return m
}

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if err := NewMigrator(db, logger).Up(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
