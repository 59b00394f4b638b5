// Package db provides database connection infrastructure.
// This is part of the platform layer and contains no business logic.
package db

import (
	"context"
	"strings"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const sqliteScheme = "sqlite:"

// IsSQLite reports whether the database URL selects the embedded SQLite store.
func IsSQLite(databaseURL string) bool {
	return strings.HasPrefix(strings.TrimSpace(databaseURL), sqliteScheme)
}

// SQLitePath strips the sqlite: scheme, leaving a modernc.org/sqlite DSN.
func SQLitePath(databaseURL string) string {
	return strings.TrimPrefix(strings.TrimSpace(databaseURL), sqliteScheme)
}

// NewPool creates a new database connection pool with production-ready settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
