package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies every pending goose migration found at the root of
// migrationsFS against the configured PostgreSQL database.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig, migrationsFS fs.FS) error {
	if !cfg.GetMigrationsEnabled() {
		return nil
	}

	sqlDB, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return migrateUp(ctx, goose.DialectPostgres, sqlDB, migrationsFS)
}

// MigrateSQLite applies every pending goose migration in migrationsFS to an
// open SQLite handle.
func MigrateSQLite(ctx context.Context, sqlDB *sql.DB, migrationsFS fs.FS) error {
	return migrateUp(ctx, goose.DialectSQLite3, sqlDB, migrationsFS)
}

func migrateUp(ctx context.Context, dialect goose.Dialect, sqlDB *sql.DB, migrationsFS fs.FS) error {
	provider, err := goose.NewProvider(dialect, sqlDB, migrationsFS)
	if err != nil {
		return fmt.Errorf("init goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
