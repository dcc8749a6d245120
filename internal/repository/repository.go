// Package repository selects the ledger store configured for the process.
package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/domain"
	bqinfra "github.com/dvloznov/ledger-balance/internal/infra/bigquery"
	"github.com/dvloznov/ledger-balance/internal/infra/memory"
	"github.com/dvloznov/ledger-balance/internal/infra/postgres"
	"github.com/dvloznov/ledger-balance/internal/infra/sqlite"
)

// Repository is the ledger store used by the pipeline, the balance service
// and the HTTP API.
type Repository interface {
	CreateEntry(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error)
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	s := cfg.Storage
	switch s.Backend {
	case config.StorageMemory:
		return memory.NewEntryRepository(), nil

	case config.StorageSQLite:
		repo, err := sqlite.NewEntryRepository(s.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil

	case config.StoragePostgres:
		repo, err := postgres.Connect(ctx, s.DatabaseURL, postgres.Options{
			MinConns: int32(s.PoolMin),
			MaxConns: int32(s.PoolMax),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return repo, nil

	case config.StorageBigQuery:
		repo, err := bqinfra.NewEntryRepository(ctx, s.BigQueryProject, s.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("open bigquery store: %w", err)
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}

var (
	_ Repository = (*memory.EntryRepository)(nil)
	_ Repository = (*sqlite.EntryRepository)(nil)
	_ Repository = (*postgres.EntryRepository)(nil)
	_ Repository = (*bqinfra.EntryRepository)(nil)
)
