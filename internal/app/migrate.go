package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/config"
	bqinfra "github.com/dvloznov/ledger-balance/internal/infra/bigquery"
	"github.com/dvloznov/ledger-balance/internal/infra/postgres"
	"github.com/dvloznov/ledger-balance/internal/infra/sqlite"
)

// Migration directions understood by Migrate.
const (
	MigrateUp      = "up"
	MigrateDown    = "down"
	MigrateVersion = "version"
)

// Migrate runs a schema migration against the configured store. The BigQuery
// backend only supports MigrateUp.
func Migrate(ctx context.Context, cfg *config.Config, direction string, log zerolog.Logger) error {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		log.Info().Msg("Memory store has no schema, nothing to migrate")
		return nil

	case config.StorageSQLite:
		m, err := sqlite.NewMigrator(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer m.Close()
		return runMigrate(m, direction, log)

	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		m, err := postgres.NewMigrator(pool)
		if err != nil {
			return err
		}
		defer m.Close()
		return runMigrate(m, direction, log)

	case config.StorageBigQuery:
		if direction != MigrateUp {
			return fmt.Errorf("bigquery migrations only support %q, got %q", MigrateUp, direction)
		}
		client, err := bigquery.NewClient(ctx, cfg.Storage.BigQueryProject)
		if err != nil {
			return fmt.Errorf("create bigquery client: %w", err)
		}
		defer client.Close()

		_, err = bqinfra.NewMigrator(client, cfg.Storage.BigQueryDataset, appliedBy(), log).Up(ctx)
		return err

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func runMigrate(m *migrate.Migrate, direction string, log zerolog.Logger) error {
	switch direction {
	case MigrateUp:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up failed: %w", err)
		}
		log.Info().Msg("Migrations applied successfully")
	case MigrateDown:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration down failed: %w", err)
		}
		log.Info().Msg("Migrations rolled back successfully")
	case MigrateVersion:
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("read migration version: %w", err)
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version")
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	return nil
}

func appliedBy() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "ledger"
}
