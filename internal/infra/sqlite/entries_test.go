package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

func newTestRepo(t *testing.T) *EntryRepository {
	t.Helper()
	repo, err := NewEntryRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func draft(item, amount string, d civil.Date, flow domain.Flow) domain.LedgerEntryDraft {
	return domain.LedgerEntryDraft{
		Item:        item,
		Amount:      decimal.RequireFromString(amount),
		Date:        d,
		Category:    "Misc",
		Flow:        flow,
		Description: item + " " + amount,
	}
}

func TestEntryRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	d := civil.Date{Year: 2024, Month: 2, Day: 29}

	created, err := repo.CreateEntry(ctx, draft("Sofa (Installment 1/3)", "333.34", d, domain.FlowExpense))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sofa (Installment 1/3)", got.Item)
	assert.Equal(t, "333.34", domain.FormatAmount(got.Amount))
	assert.Equal(t, d, got.Date)
	assert.Equal(t, domain.FlowExpense, got.Flow)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestEntryRepository_ListInclusiveRangeOrdered(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	start := civil.Date{Year: 2025, Month: 3, Day: 1}
	end := civil.Date{Year: 2025, Month: 3, Day: 31}

	for _, d := range []domain.LedgerEntryDraft{
		draft("before", "1", civil.Date{Year: 2025, Month: 2, Day: 28}, domain.FlowExpense),
		draft("first day", "2", start, domain.FlowExpense),
		draft("last day", "3", end, domain.FlowIncome),
		draft("mid", "4", civil.Date{Year: 2025, Month: 3, Day: 15}, domain.FlowExpense),
		draft("mid later", "5", civil.Date{Year: 2025, Month: 3, Day: 15}, domain.FlowExpense),
		draft("after", "6", civil.Date{Year: 2025, Month: 4, Day: 1}, domain.FlowExpense),
	} {
		_, err := repo.CreateEntry(ctx, d)
		require.NoError(t, err)
	}

	got, err := repo.ListEntriesInRange(ctx, start, end)
	require.NoError(t, err)

	var items []string
	for _, e := range got {
		items = append(items, e.Item)
	}
	assert.Equal(t, []string{"last day", "mid later", "mid", "first day"}, items)
}

func TestEntryRepository_EmptyRange(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.ListEntriesInRange(context.Background(), civil.Date{Year: 2030, Month: 1, Day: 1}, civil.Date{Year: 2030, Month: 1, Day: 31})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEntryRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetEntry(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntryRepository_RejectsInvalidDraft(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateEntry(context.Background(), domain.LedgerEntryDraft{Item: "x", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEntryRepository_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	d := civil.Date{Year: 2025, Month: 5, Day: 5}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateEntry(ctx, draft("item", "1.00", d, domain.FlowExpense))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.ListEntriesInRange(ctx, d, d)
	require.NoError(t, err)
	assert.Len(t, got, 8)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
