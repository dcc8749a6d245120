package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/ledger-balance/internal/app"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/logger"
	"github.com/dvloznov/ledger-balance/internal/repository"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (defaults to NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (defaults to NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *startDateStr == "" || *endDateStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}

	startDate, err := domain.ParseDate(*startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	endDate, err := domain.ParseDate(*endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal().
			Str("start_date", startDate.String()).
			Str("end_date", endDate.String()).
			Msg("Error: end-date must not be before start-date")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *notionToken != "" {
		cfg.Notion.Token = *notionToken
	}
	if *notionDBID != "" {
		cfg.Notion.DatabaseID = *notionDBID
	}
	log = app.Logger(cfg, os.Stdout)

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Info().
		Str("start_date", startDate.String()).
		Str("end_date", endDate.String()).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer repo.Close()

	syncer, err := app.NewNotionSyncer(cfg, repo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: --notion-token and --notion-db-id are required")
	}

	report, err := syncer.SyncPeriod(ctx, startDate, endDate, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
	if report.Failed > 0 {
		log.Fatal().Int("failed", report.Failed).Int("entries", report.Entries).Msg("Sync finished with failures")
	}

	fmt.Printf("Sync completed successfully: %d created, %d updated, %d unchanged, %d archived.\n",
		report.Created, report.Updated, report.Unchanged, report.Archived)
}
