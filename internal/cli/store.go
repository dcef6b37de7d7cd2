package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/infra/memory"
	"quizmaster-service/internal/infra/sqlstore"
)

// openStore returns the store selected by database.driver. SQL stores are migrated on open.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (app.Store, func(), error) {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	case sqlstore.DriverPostgres, sqlstore.DriverSQLite:
		db, err := openDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		group, err := sqlstore.Migrate(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if !group.IsZero() {
			logger.Info("migrations applied", "group", group.String())
		}
		store := sqlstore.NewStore(db)
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openDB(cfg config.Config) (*bun.DB, error) {
	dsn := cfg.Database.URL
	if cfg.Database.Driver == sqlstore.DriverSQLite {
		dsn = cfg.Database.Path
	}
	return sqlstore.Open(cfg.Database.Driver, dsn)
}
