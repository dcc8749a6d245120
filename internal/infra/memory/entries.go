package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// EntryRepository keeps ledger entries in process memory. It is used by
// tests and by the "memory" storage backend.
type EntryRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry
	nextID  int64
	now     func() time.Time

	// FailCreate, when set, is consulted before every insert.
	FailCreate func(draft domain.LedgerEntryDraft) error
}

// NewEntryRepository creates an empty repository.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{now: time.Now}
}

// CreateEntry stores a copy of draft and returns the stored entry.
func (r *EntryRepository) CreateEntry(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("CreateEntry: %w", err)
	}
	if r.FailCreate != nil {
		if err := r.FailCreate(draft); err != nil {
			return nil, fmt.Errorf("CreateEntry: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now().UTC()
	entry := &domain.LedgerEntry{
		ID:               strconv.FormatInt(r.nextID, 10),
		LedgerEntryDraft: draft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.entries = append(r.entries, entry)

	out := *entry
	return &out, nil
}

// GetEntry returns the entry with the given id or domain.ErrNotFound.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			out := *e
			return &out, nil
		}
	}
	return nil, fmt.Errorf("GetEntry %s: %w", id, domain.ErrNotFound)
}

// ListEntriesInRange returns entries dated within [start, end], newest first.
func (r *EntryRepository) ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]*domain.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.Date.Before(start) || e.Date.After(end) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		// Later inserts have larger ids.
		a, _ := strconv.ParseInt(out[i].ID, 10, 64)
		b, _ := strconv.ParseInt(out[j].ID, 10, 64)
		return a > b
	})
	return out, nil
}

// Ping always succeeds.
func (r *EntryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (r *EntryRepository) Close() error {
	return nil
}
