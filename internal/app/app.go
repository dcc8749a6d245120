// Package app builds the service's components from configuration. Every
// command wires itself through here so the binaries stay thin.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/balance"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/export"
	"github.com/dvloznov/ledger-balance/internal/extraction"
	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/jobs/amqp"
	"github.com/dvloznov/ledger-balance/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-balance/internal/logger"
	"github.com/dvloznov/ledger-balance/internal/notionsync"
	"github.com/dvloznov/ledger-balance/internal/pipeline"
	"github.com/dvloznov/ledger-balance/internal/repository"
)

// ErrNotionDisabled is returned when Notion credentials are missing.
var ErrNotionDisabled = errors.New("notion sync is not configured")

// ErrExportDisabled is returned when no export bucket is configured.
var ErrExportDisabled = errors.New("statement export is not configured")

// Logger builds the process logger from cfg.
func Logger(cfg *config.Config, w io.Writer) zerolog.Logger {
	log := logger.NewFromConfig(w, cfg.LogLevel, cfg.LogFormat)
	if cfg.Debug {
		log = log.Level(zerolog.DebugLevel)
	}
	return logger.ForService(log, cfg.AppName, cfg.Version)
}

// NewProcessor wires the Gemini extractor to store.
func NewProcessor(ctx context.Context, cfg *config.Config, store pipeline.EntryStore, sink pipeline.EventSink, log zerolog.Logger) (*pipeline.Processor, error) {
	client, err := extraction.NewGeminiClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return nil, err
	}
	return NewProcessorWithClient(cfg, client, store, sink, log), nil
}

// NewProcessorWithClient is NewProcessor over an existing model client.
func NewProcessorWithClient(cfg *config.Config, client extraction.ModelClient, store pipeline.EntryStore, sink pipeline.EventSink, log zerolog.Logger) *pipeline.Processor {
	extractor := extraction.NewGeminiExtractor(client,
		extraction.WithModel(cfg.Gemini.Model),
		extraction.WithLogger(log),
	)
	return pipeline.NewProcessor(extractor, store,
		pipeline.WithConcurrency(cfg.PersistConcurrency),
		pipeline.WithSink(pipeline.MultiSink{pipeline.NewLogSink(log), sink}),
	)
}

// Queue is both ends of a job queue.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// NewQueue opens the queue backend named by cfg.Queue.Backend. observer may be
// nil.
func NewQueue(cfg *config.Config, store jobs.JobStore, log zerolog.Logger, observer func(*jobs.ProcessMessageJob)) (Queue, error) {
	q := cfg.Queue
	switch q.Backend {
	case config.QueueMemory:
		opts := []inmemory.Option{inmemory.WithWorkers(q.Workers)}
		if observer != nil {
			opts = append(opts, inmemory.WithObserver(observer))
		}
		return inmemory.NewQueue(q.Buffer, store, opts...), nil

	case config.QueueAMQP:
		var opts []amqp.Option
		if observer != nil {
			opts = append(opts, amqp.WithObserver(observer))
		}
		client, err := amqp.NewClient(q.AMQPURL, q.Exchange, q.Queue, store, log, opts...)
		if err != nil {
			return nil, fmt.Errorf("open amqp queue: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown queue backend %q", q.Backend)
	}
}

// NewNotionSyncer returns a syncer for the configured database.
func NewNotionSyncer(cfg *config.Config, repo notionsync.EntryLister, log zerolog.Logger) (*notionsync.Syncer, error) {
	if !cfg.NotionEnabled() {
		return nil, ErrNotionDisabled
	}
	client := notionsync.NewNotionClient(cfg.Notion.Token)
	return notionsync.NewSyncer(repo, client, cfg.Notion.DatabaseID, log), nil
}

// NewExporter returns a GCS statement exporter and a function releasing its
// storage client.
func NewExporter(ctx context.Context, cfg *config.Config, repo repository.Repository, log zerolog.Logger) (*export.Exporter, func() error, error) {
	if cfg.Export.Bucket == "" {
		return nil, nil, ErrExportDisabled
	}
	writer, err := export.NewGCSWriter(ctx)
	if err != nil {
		return nil, nil, err
	}
	return export.NewExporter(balance.NewService(repo), writer, cfg.Export.Bucket, log), writer.Close, nil
}
