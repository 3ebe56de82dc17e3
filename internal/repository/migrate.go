package repository

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"niena/internal/errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// gooseLogger routes goose output through the application logger
type gooseLogger struct {
	logger *errors.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func prepareGoose(logger *errors.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.NewInternalError(errors.ErrCodeDatabase, "set goose dialect", err)
	}
	return nil
}

// Migrate applies every pending embedded migration
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *errors.Logger) error {
	if err := prepareGoose(logger); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	logger.Info("Starting database migrations")
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return errors.NewStorageError(errors.ErrCodeDatabase, "apply migrations", err)
	}
	logger.Info("All migrations completed successfully")
	return nil
}

// MigrateDown rolls back the most recent migration
func MigrateDown(ctx context.Context, pool *pgxpool.Pool, logger *errors.Logger) error {
	if err := prepareGoose(logger); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
		return errors.NewStorageError(errors.ErrCodeDatabase, "roll back migration", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every migration
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, logger *errors.Logger) error {
	if err := prepareGoose(logger); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	if err := goose.StatusContext(ctx, db, migrationsDir); err != nil {
		return errors.NewStorageError(errors.ErrCodeDatabase, "read migration status", err)
	}
	return nil
}
