package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// EntryRepository stores ledger entries in BigQuery. It holds a shared
// client to avoid creating a new connection for each operation.
type EntryRepository struct {
	client    *bigquery.Client
	datasetID string
	now       func() time.Time
}

// NewEntryRepository creates a client for projectID and binds it to datasetID.
func NewEntryRepository(ctx context.Context, projectID, datasetID string) (*EntryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewEntryRepository: creating client: %w", err)
	}
	return NewEntryRepositoryWithClient(client, datasetID), nil
}

// NewEntryRepositoryWithClient wraps an existing client.
func NewEntryRepositoryWithClient(client *bigquery.Client, datasetID string) *EntryRepository {
	return &EntryRepository{client: client, datasetID: datasetID, now: time.Now}
}

// Close closes the BigQuery client connection.
func (r *EntryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks that the dataset is reachable.
func (r *EntryRepository) Ping(ctx context.Context) error {
	if _, err := r.client.Dataset(r.datasetID).Metadata(ctx); err != nil {
		return fmt.Errorf("Ping: dataset %s: %w", r.datasetID, err)
	}
	return nil
}

// CreateEntry streams one entry into the ledger table.
func (r *EntryRepository) CreateEntry(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("CreateEntry: %w", err)
	}
	row := NewEntryRow(draft, r.now().UTC())
	if err := InsertEntryWithClient(ctx, r.client, r.datasetID, row); err != nil {
		return nil, fmt.Errorf("CreateEntry: %w", err)
	}
	return row.ToEntry(), nil
}

// GetEntry returns one entry by id.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	row, err := GetEntryWithClient(ctx, r.client, r.datasetID, id)
	if err != nil {
		return nil, fmt.Errorf("GetEntry %s: %w", id, err)
	}
	if row == nil {
		return nil, fmt.Errorf("GetEntry %s: %w", id, domain.ErrNotFound)
	}
	return row.ToEntry(), nil
}

// ListEntriesInRange returns entries dated within [start, end], newest first.
func (r *EntryRepository) ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error) {
	rows, err := QueryEntriesByDateRangeWithClient(ctx, r.client, r.datasetID, start, end)
	if err != nil {
		return nil, fmt.Errorf("ListEntriesInRange: %w", err)
	}
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.ToEntry())
	}
	return entries, nil
}
