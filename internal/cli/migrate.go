package cli

import (
	"context"

	"niena/internal/config"
	"niena/internal/errors"
	"niena/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  migrateWith(repository.Migrate),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE:  migrateWith(repository.MigrateDown),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  migrateWith(repository.MigrationStatus),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

type migrationFunc func(ctx context.Context, pool *pgxpool.Pool, logger *errors.Logger) error

// migrateWith runs fn against a fresh pool; migrations need no AI or Redis
func migrateWith(fn migrationFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := commandEnv(cmd)
		if err != nil {
			return err
		}
		return withPool(cmd.Context(), cfg, func(pool *pgxpool.Pool) error {
			return fn(cmd.Context(), pool, logger)
		})
	}
}

func withPool(ctx context.Context, cfg *config.Config, fn func(*pgxpool.Pool) error) error {
	pool, err := repository.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}
