package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

const entriesTable = "ledger_entries"

// InsertEntryWithClient streams one row into <dataset>.ledger_entries.
func InsertEntryWithClient(ctx context.Context, client *bigquery.Client, datasetID string, row *EntryRow) error {
	table := client.Dataset(datasetID).Table(entriesTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertEntry: inserting row: %w", err)
	}
	return nil
}

// QueryEntriesByDateRangeWithClient returns rows dated within [start, end],
// newest first.
func QueryEntriesByDateRangeWithClient(ctx context.Context, client *bigquery.Client, datasetID string, start, end civil.Date) ([]*EntryRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			entry_id,
			item,
			amount,
			value_date,
			category,
			flow,
			description,
			created_ts,
			updated_ts
		FROM %s.%s
		WHERE value_date >= @start_date
		  AND value_date <= @end_date
		ORDER BY value_date DESC, created_ts DESC
	`, datasetID, entriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	return readEntryRows(ctx, q)
}

// GetEntryWithClient fetches one row by id; nil when absent.
func GetEntryWithClient(ctx context.Context, client *bigquery.Client, datasetID, entryID string) (*EntryRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT entry_id, item, amount, value_date, category, flow, description, created_ts, updated_ts
		FROM %s.%s
		WHERE entry_id = @entry_id
		LIMIT 1
	`, datasetID, entriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "entry_id", Value: entryID},
	}

	rows, err := readEntryRows(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func readEntryRows(ctx context.Context, q *bigquery.Query) ([]*EntryRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*EntryRow
	for {
		var r EntryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// NewEntryRow converts a draft into a row with a fresh UUID.
func NewEntryRow(draft domain.LedgerEntryDraft, now time.Time) *EntryRow {
	return &EntryRow{
		EntryID:     uuid.NewString(),
		Item:        draft.Item,
		Amount:      draft.Amount.Rat(),
		Date:        draft.Date,
		Category:    draft.Category,
		Flow:        string(draft.Flow),
		Description: draft.Description,
		CreatedTS:   now,
		UpdatedTS:   now,
	}
}

// ToEntry converts a stored row back into a domain entry.
func (r *EntryRow) ToEntry() *domain.LedgerEntry {
	amount := domain.ZeroAmount
	if r.Amount != nil {
		amount = ratToDecimal(r.Amount)
	}
	return &domain.LedgerEntry{
		ID: r.EntryID,
		LedgerEntryDraft: domain.LedgerEntryDraft{
			Item:        r.Item,
			Amount:      amount,
			Date:        r.Date,
			Category:    r.Category,
			Flow:        domain.Flow(r.Flow),
			Description: r.Description,
		},
		CreatedAt: r.CreatedTS.UTC(),
		UpdatedAt: r.UpdatedTS.UTC(),
	}
}

// BigQuery NUMERIC has 9 fractional digits.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return domain.ZeroAmount
	}
	return d.Round(domain.CurrencyPlaces)
}
