package cli

import (
	"context"

	"github.com/spf13/cobra"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/infra/sqlstore"
)

// NewMigrateCmd applies or reverts database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, down)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the last migration group")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, down bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if down {
		group, err := sqlstore.Rollback(ctx, db)
		if err != nil {
			return err
		}
		if group.IsZero() {
			logger.Info("nothing to roll back")
			return nil
		}
		logger.Info("migrations rolled back", "group", group.String())
		return nil
	}

	group, err := sqlstore.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", "group", group.String())
	return nil
}
