package notionsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/infra/memory"
)

// MockNotionService records calls and serves pages from memory.
type MockNotionService struct {
	Pages     []notionapi.Page
	PageSize  int
	CreateErr error

	Created  []notionapi.Properties
	Updated  map[string]notionapi.Properties
	Archived []string
	Queries  int
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, properties)
	return &notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("new-%d", len(m.Created)))}, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.Updated == nil {
		m.Updated = map[string]notionapi.Properties{}
	}
	m.Updated[pageID] = properties
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	m.Queries++
	size := m.PageSize
	if size == 0 {
		size = len(m.Pages)
	}

	offset := 0
	if req.StartCursor != "" {
		fmt.Sscanf(string(req.StartCursor), "%d", &offset)
	}
	end := min(offset+size, len(m.Pages))

	resp := &notionapi.DatabaseQueryResponse{Results: m.Pages[offset:end]}
	if end < len(m.Pages) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(fmt.Sprintf("%d", end))
	}
	return resp, nil
}

func (m *MockNotionService) ArchivePage(ctx context.Context, pageID string) error {
	m.Archived = append(m.Archived, pageID)
	return nil
}

// mirroredPage builds a page the way the Notion API returns one for e.
func mirroredPage(pageID string, e *domain.LedgerEntry) notionapi.Page {
	start := notionapi.Date(e.Date.In(timeUTC))
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			PropItem:     &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: e.Item}}},
			PropEntryID:  &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: e.ID}}},
			PropDate:     &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}},
			PropAmount:   &notionapi.NumberProperty{Number: e.Amount.InexactFloat64()},
			PropFlow:     &notionapi.SelectProperty{Select: notionapi.Option{Name: string(e.Flow)}},
			PropCategory: &notionapi.SelectProperty{Select: notionapi.Option{Name: e.Category}},
		},
	}
}

func orphanPage(pageID, entryID string, d civil.Date) notionapi.Page {
	start := notionapi.Date(d.In(timeUTC))
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			PropEntryID: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: entryID}}},
			PropDate:    &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}},
		},
	}
}

var timeUTC = time.UTC

var (
	march1  = civil.Date{Year: 2025, Month: 3, Day: 1}
	march31 = civil.Date{Year: 2025, Month: 3, Day: 31}
)

func seed(t *testing.T, repo *memory.EntryRepository, item, amount string, day int) *domain.LedgerEntry {
	t.Helper()
	e, err := repo.CreateEntry(context.Background(), domain.LedgerEntryDraft{
		Item:     item,
		Amount:   decimal.RequireFromString(amount),
		Date:     civil.Date{Year: 2025, Month: 3, Day: day},
		Category: "Food",
		Flow:     domain.FlowExpense,
	})
	require.NoError(t, err)
	return e
}

func TestSyncPeriod_CreatesMissingPages(t *testing.T) {
	repo := memory.NewEntryRepository()
	seed(t, repo, "coffee", "4.50", 3)
	seed(t, repo, "bread", "2.10", 4)
	notion := &MockNotionService{}

	report, err := NewSyncer(repo, notion, "db", zerolog.Nop()).SyncPeriod(context.Background(), march1, march31, false)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 2, report.Created)
	require.Len(t, notion.Created, 2)
	title := notion.Created[0][PropItem].(notionapi.TitleProperty)
	assert.Equal(t, "bread", title.Title[0].Text.Content)
	signed := notion.Created[0][PropSignedAmount].(notionapi.NumberProperty)
	assert.Equal(t, -2.1, signed.Number)
}

func TestSyncPeriod_IsIdempotent(t *testing.T) {
	repo := memory.NewEntryRepository()
	coffee := seed(t, repo, "coffee", "4.50", 3)
	bread := seed(t, repo, "bread", "2.10", 4)

	stale := *bread
	stale.Amount = decimal.RequireFromString("9.99")

	notion := &MockNotionService{Pages: []notionapi.Page{
		mirroredPage("p-coffee", coffee),
		mirroredPage("p-bread", &stale),
	}}

	report, err := NewSyncer(repo, notion, "db", zerolog.Nop()).SyncPeriod(context.Background(), march1, march31, false)

	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.Updated)
	assert.Contains(t, notion.Updated, "p-bread")
	assert.Empty(t, notion.Created)
}

func TestSyncPeriod_ArchivesStalePagesInPeriodOnly(t *testing.T) {
	repo := memory.NewEntryRepository()
	seed(t, repo, "coffee", "4.50", 3)

	notion := &MockNotionService{Pages: []notionapi.Page{
		orphanPage("p-deleted", "999", civil.Date{Year: 2025, Month: 3, Day: 10}),
		orphanPage("p-no-id", "", civil.Date{Year: 2025, Month: 3, Day: 11}),
		orphanPage("p-april", "1000", civil.Date{Year: 2025, Month: 4, Day: 2}),
	}}

	report, err := NewSyncer(repo, notion, "db", zerolog.Nop()).SyncPeriod(context.Background(), march1, march31, false)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Archived)
	assert.ElementsMatch(t, []string{"p-deleted", "p-no-id"}, notion.Archived)
	assert.Equal(t, 1, report.Created)
}

func TestSyncPeriod_DryRunWritesNothing(t *testing.T) {
	repo := memory.NewEntryRepository()
	seed(t, repo, "coffee", "4.50", 3)
	notion := &MockNotionService{Pages: []notionapi.Page{
		orphanPage("p-deleted", "999", civil.Date{Year: 2025, Month: 3, Day: 10}),
	}}

	report, err := NewSyncer(repo, notion, "db", zerolog.Nop()).SyncPeriod(context.Background(), march1, march31, true)

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Archived)
	assert.Empty(t, notion.Created)
	assert.Empty(t, notion.Archived)
}

func TestSyncPeriod_FollowsCursor(t *testing.T) {
	repo := memory.NewEntryRepository()
	var pages []notionapi.Page
	for i := 1; i <= 5; i++ {
		e := seed(t, repo, fmt.Sprintf("item %d", i), "1", i)
		pages = append(pages, mirroredPage(fmt.Sprintf("p-%d", i), e))
	}
	notion := &MockNotionService{Pages: pages, PageSize: 2}

	report, err := NewSyncer(repo, notion, "db", zerolog.Nop()).SyncPeriod(context.Background(), march1, march31, false)

	require.NoError(t, err)
	assert.Equal(t, 3, notion.Queries)
	assert.Equal(t, 5, report.Unchanged)
	assert.Zero(t, report.Created)
}

func TestSyncPeriod_CountsFailures(t *testing.T) {
	repo := memory.NewEntryRepository()
	seed(t, repo, "coffee", "4.50", 3)
	notion := &MockNotionService{CreateErr: errors.New("rate limited")}

	report, err := NewSyncer(repo, notion, "db", zerolog.Nop()).SyncPeriod(context.Background(), march1, march31, false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Created)
}
