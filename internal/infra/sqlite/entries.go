package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-balance/internal/domain"

	_ "modernc.org/sqlite"
)

// Fixed-width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EntryRepository stores ledger entries in a SQLite database.
type EntryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewEntryRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewEntryRepository(dbPath string) (*EntryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &EntryRepository{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (r *EntryRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *EntryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateEntry inserts draft and returns the stored entry.
func (r *EntryRepository) CreateEntry(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("CreateEntry: %w", err)
	}

	now := r.now().UTC()
	stamp := now.Format(timestampLayout)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (item, amount, value_date, category, flow, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.Item,
		domain.FormatAmount(draft.Amount),
		draft.Date.String(),
		draft.Category,
		string(draft.Flow),
		draft.Description,
		stamp,
		stamp,
	)
	if err != nil {
		return nil, fmt.Errorf("CreateEntry: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateEntry: last insert id: %w", err)
	}

	return &domain.LedgerEntry{
		ID:               strconv.FormatInt(id, 10),
		LedgerEntryDraft: draft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// GetEntry returns one entry by id.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, item, amount, value_date, category, flow, description, created_at, updated_at
		FROM ledger_entries
		WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetEntry %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetEntry %s: %w", id, err)
	}
	return e, nil
}

// ListEntriesInRange returns entries dated within [start, end], newest first.
func (r *EntryRepository) ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item, amount, value_date, category, flow, description, created_at, updated_at
		FROM ledger_entries
		WHERE value_date >= ? AND value_date <= ?
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

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*domain.LedgerEntry, error) {
	var (
		id                                      int64
		item, amount, valueDate, category, flow string
		description, createdAt, updatedAt       string
	)
	if err := s.Scan(&id, &item, &amount, &valueDate, &category, &flow, &description, &createdAt, &updatedAt); err != nil {
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
	created, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("entry %d: created_at %q: %w", id, createdAt, err)
	}
	updated, err := time.Parse(timestampLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("entry %d: updated_at %q: %w", id, updatedAt, err)
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
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
