package scheduler

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/notionsync"
)

// PeriodSyncer mirrors a period into Notion.
type PeriodSyncer interface {
	SyncPeriod(ctx context.Context, start, end civil.Date, dryRun bool) (notionsync.Report, error)
}

// PeriodExporter writes a period statement somewhere durable.
type PeriodExporter interface {
	Export(ctx context.Context, start, end civil.Date) (string, error)
}

// NotionSyncJob mirrors the current month into Notion.
type NotionSyncJob struct {
	Syncer PeriodSyncer
	Now    func() time.Time
}

func (j *NotionSyncJob) Name() string { return "notion_sync" }

func (j *NotionSyncJob) Run(ctx context.Context) error {
	start, end := domain.MonthBounds(civil.DateOf(now(j.Now)))
	report, err := j.Syncer.SyncPeriod(ctx, start, end, false)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("notion sync: %d of %d entries failed", report.Failed, report.Entries)
	}
	return nil
}

// StatementExportJob exports the previous month's statement.
type StatementExportJob struct {
	Exporter PeriodExporter
	Now      func() time.Time
}

func (j *StatementExportJob) Name() string { return "statement_export" }

func (j *StatementExportJob) Run(ctx context.Context) error {
	start, end := domain.MonthBounds(domain.AddMonths(civil.DateOf(now(j.Now)), -1))
	_, err := j.Exporter.Export(ctx, start, end)
	return err
}

func now(f func() time.Time) time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}
