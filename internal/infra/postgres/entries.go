package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

const maxRetries = 3

// Options tunes the connection pool.
type Options struct {
	MinConns int32
	MaxConns int32
}

// EntryRepository stores ledger entries in PostgreSQL.
type EntryRepository struct {
	Pool *pgxpool.Pool
}

// Connect opens a pool on databaseURL and applies pending migrations.
func Connect(ctx context.Context, databaseURL string, opts Options) (*EntryRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := RunMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewEntryRepository(pool), nil
}

// NewEntryRepository wraps an existing pool.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{Pool: pool}
}

// Close closes the pool.
func (r *EntryRepository) Close() error {
	r.Pool.Close()
	return nil
}

// Ping checks the database connection.
func (r *EntryRepository) Ping(ctx context.Context) error {
	return r.Pool.Ping(ctx)
}

// CreateEntry inserts draft, retrying serialization failures.
func (r *EntryRepository) CreateEntry(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("CreateEntry: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		entry, err := r.insert(ctx, draft)
		if err == nil {
			return entry, nil
		}
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != "40001" {
			return nil, fmt.Errorf("CreateEntry: %w", err)
		}
		// Serialization failure, retry
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return nil, fmt.Errorf("CreateEntry: failed after %d retries due to serialization failure: %w", maxRetries, lastErr)
}

func (r *EntryRepository) insert(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error) {
	var (
		id                   int64
		createdAt, updatedAt time.Time
	)
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO ledger_entries (item, amount, value_date, category, flow, description)
		VALUES ($1, $2::numeric, $3::date, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		draft.Item,
		domain.FormatAmount(draft.Amount),
		draft.Date.String(),
		draft.Category,
		string(draft.Flow),
		draft.Description,
	).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return &domain.LedgerEntry{
		ID:               strconv.FormatInt(id, 10),
		LedgerEntryDraft: draft,
		CreatedAt:        createdAt.UTC(),
		UpdatedAt:        updatedAt.UTC(),
	}, nil
}

const selectEntries = `
	SELECT id, item, amount::text, value_date::text, category, flow, description, created_at, updated_at
	FROM ledger_entries`

// GetEntry returns one entry by id.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("GetEntry %s: %w", id, domain.ErrNotFound)
	}

	e, err := scanEntry(r.Pool.QueryRow(ctx, selectEntries+` WHERE id = $1`, n))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("GetEntry %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetEntry %s: %w", id, err)
	}
	return e, nil
}

// ListEntriesInRange returns entries dated within [start, end], newest first.
func (r *EntryRepository) ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error) {
	rows, err := r.Pool.Query(ctx, selectEntries+`
		WHERE value_date BETWEEN $1::date AND $2::date
		ORDER BY value_date DESC, created_at DESC, id DESC`,
		start.String(), end.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("ListEntriesInRange: query: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListEntriesInRange: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEntriesInRange: rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		id                                      int64
		item, amount, valueDate, category, flow string
		description                             string
		createdAt, updatedAt                    time.Time
	)
	if err := row.Scan(&id, &item, &amount, &valueDate, &category, &flow, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("entry %d: amount %q: %w", id, amount, err)
	}
	date, err := civil.ParseDate(valueDate)
	if err != nil {
		return nil, fmt.Errorf("entry %d: value_date %q: %w", id, valueDate, err)
	}

	return &domain.LedgerEntry{
		ID: strconv.FormatInt(id, 10),
		LedgerEntryDraft: domain.LedgerEntryDraft{
			Item:        item,
			Amount:      amt,
			Date:        date,
			Category:    category,
			Flow:        domain.Flow(flow),
			Description: description,
		},
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}
