package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func newMigrationProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies every pending migration found at the root of fsys
// and logs each one applied.
func RunMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	provider, err := newMigrationProvider(db, fsys)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, res := range results {
		logger.Info("Applied migration",
			zap.Int64("version", res.Source.Version),
			zap.String("file", res.Source.Path),
			zap.Duration("duration", res.Duration),
		)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Database schema up to date",
		zap.Int64("version", version),
		zap.Int("applied", len(results)),
	)
	return nil
}

// MigrationStatus reports every known migration with its state
func MigrationStatus(ctx context.Context, db *sql.DB, fsys fs.FS) ([]*goose.MigrationStatus, error) {
	provider, err := newMigrationProvider(db, fsys)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	return statuses, nil
}
