package bootstrap

import (
	"context"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store/postgres"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store/sqlite"
	"github.com/alexcopeland13/relay-isa-automation-sub001/migrations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/db"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenStore opens the backend selected by DATABASE_URL. A sqlite: URL opens
// the embedded store and applies its schema; anything else is treated as a
// PostgreSQL URL, migrated with goose and served from a pgx pool.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (store.Store, error) {
	if db.IsSQLite(cfg.GetDatabaseURL()) {
		st, err := sqlite.Open(ctx, db.SQLitePath(cfg.GetDatabaseURL()))
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store ready")
		return st, nil
	}

	if err := WithRetry(ctx, log, "database migrations", func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		return nil, err
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, err
	}
	log.Info("database connection established")

	return postgres.New(pool), nil
}
