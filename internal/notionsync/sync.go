package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

// BatchSize is the number of entries logged per progress batch.
const BatchSize = 100

// Report counts what a sync did, or would do in a dry run.
type Report struct {
	Entries   int
	Created   int
	Updated   int
	Unchanged int
	Archived  int
	Failed    int
	DryRun    bool
}

// Syncer mirrors stored ledger entries into a Notion database.
type Syncer struct {
	repo       EntryLister
	notion     NotionService
	databaseID string
	log        zerolog.Logger
}

// NewSyncer creates a syncer for the given database.
func NewSyncer(repo EntryLister, notion NotionService, databaseID string, log zerolog.Logger) *Syncer {
	return &Syncer{
		repo:       repo,
		notion:     notion,
		databaseID: databaseID,
		log:        log,
	}
}

// SyncPeriod makes the database mirror the entries dated in [start, end].
// Pages are matched on "Entry ID", so running it twice creates nothing new.
// Pages dated inside the period whose entry no longer exists are archived;
// pages outside the period are never touched. Failures on single pages are
// logged and counted, not returned.
func (s *Syncer) SyncPeriod(ctx context.Context, start, end civil.Date, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}

	s.log.Info().
		Stringer("start_date", start).
		Stringer("end_date", end).
		Bool("dry_run", dryRun).
		Msg("Starting ledger sync to Notion")

	entries, err := s.repo.ListEntriesInRange(ctx, start, end)
	if err != nil {
		return report, fmt.Errorf("SyncPeriod: list entries: %w", err)
	}
	report.Entries = len(entries)

	pages, err := queryAllNotionPages(ctx, s.notion, s.databaseID)
	if err != nil {
		return report, fmt.Errorf("SyncPeriod: %w", err)
	}

	s.log.Info().
		Int("entry_count", len(entries)).
		Int("notion_page_count", len(pages)).
		Msg("Loaded entries and existing pages")

	valid := make(map[string]bool, len(entries))
	for _, e := range entries {
		valid[e.ID] = true
	}

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		id := extractEntryID(page)
		d, dated := extractDate(page)
		inPeriod := dated && !d.Before(start) && !d.After(end)

		if id != "" && valid[id] {
			existing[id] = page
			continue
		}
		if !inPeriod {
			continue
		}

		s.archive(ctx, page, id, dryRun, &report)
	}

	for i := 0; i < len(entries); i += BatchSize {
		batchEnd := min(i+BatchSize, len(entries))
		s.log.Debug().
			Int("batch_start", i).
			Int("batch_end", batchEnd).
			Msg("Processing batch")

		for _, e := range entries[i:batchEnd] {
			page, found := existing[e.ID]
			switch {
			case found && pageMatchesEntry(page, e):
				report.Unchanged++
			case found:
				s.update(ctx, page, e.ID, EntryToNotionProperties(e), dryRun, &report)
			default:
				s.create(ctx, e.ID, EntryToNotionProperties(e), dryRun, &report)
			}
		}
	}

	s.log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("unchanged", report.Unchanged).
		Int("archived", report.Archived).
		Int("failed", report.Failed).
		Bool("dry_run", dryRun).
		Msg("Ledger sync completed")

	return report, nil
}

func (s *Syncer) create(ctx context.Context, entryID string, props notionapi.Properties, dryRun bool, r *Report) {
	if dryRun {
		s.log.Info().Str("entry_id", entryID).Msg("[DRY RUN] Would create Notion page")
		r.Created++
		return
	}

	page, err := s.notion.CreatePage(ctx, s.databaseID, props)
	if err != nil {
		s.log.Warn().Err(err).Str("entry_id", entryID).Msg("Failed to create Notion page")
		r.Failed++
		return
	}
	s.log.Debug().Str("entry_id", entryID).Str("page_id", string(page.ID)).Msg("Created Notion page")
	r.Created++
}

func (s *Syncer) update(ctx context.Context, page notionapi.Page, entryID string, props notionapi.Properties, dryRun bool, r *Report) {
	if dryRun {
		s.log.Info().Str("entry_id", entryID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would update Notion page")
		r.Updated++
		return
	}

	if _, err := s.notion.UpdatePage(ctx, string(page.ID), props); err != nil {
		s.log.Warn().Err(err).Str("entry_id", entryID).Str("page_id", string(page.ID)).Msg("Failed to update Notion page")
		r.Failed++
		return
	}
	r.Updated++
}

func (s *Syncer) archive(ctx context.Context, page notionapi.Page, entryID string, dryRun bool, r *Report) {
	if dryRun {
		s.log.Info().Str("entry_id", entryID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
		r.Archived++
		return
	}

	if err := s.notion.ArchivePage(ctx, string(page.ID)); err != nil {
		s.log.Warn().Err(err).Str("entry_id", entryID).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
		r.Failed++
		return
	}
	r.Archived++
}

// queryAllNotionPages follows the cursor until every page has been read.
func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		// Only set StartCursor if we have a cursor value
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
