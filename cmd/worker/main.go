package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvloznov/ledger-balance/internal/app"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-balance/internal/logger"
	"github.com/dvloznov/ledger-balance/internal/metrics"
	"github.com/dvloznov/ledger-balance/internal/repository"
	"github.com/dvloznov/ledger-balance/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := app.Logger(cfg, os.Stdout).With().Str("component", "worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open ledger store")
	}
	defer repo.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Message consumer. The in-memory queue cannot be shared across
	// processes, so the worker only consumes from AMQP.
	var consumer app.Queue
	if cfg.Queue.Backend == config.QueueAMQP {
		processor, err := app.NewProcessor(ctx, cfg, repo, m, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create message processor")
		}
		consumer, err = app.NewQueue(cfg, inmemory.NewStore(inmemory.WithRetention(cfg.Queue.JobRetention)), log, m.ObserveJob)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to job queue")
		}
		if err := consumer.Start(ctx, jobs.NewMessageHandler(processor, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job consumer")
		}
	} else {
		log.Warn().Str("queue", cfg.Queue.Backend).Msg("Queue backend is process-local, worker runs scheduled jobs only")
	}

	// Scheduled jobs
	sched := scheduler.New(ctx, log)

	if syncer, err := app.NewNotionSyncer(cfg, repo, log); err == nil {
		if err := sched.AddJob(cfg.Schedule.NotionSync, &scheduler.NotionSyncJob{Syncer: syncer}); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule Notion sync")
		}
	} else {
		log.Info().Err(err).Msg("Notion sync disabled")
	}

	exporter, closeExporter, err := app.NewExporter(ctx, cfg, repo, log)
	switch {
	case err == nil:
		defer closeExporter()
		if err := sched.AddJob(cfg.Schedule.Export, &scheduler.StatementExportJob{Exporter: exporter}); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule statement export")
		}
	case errors.Is(err, app.ErrExportDisabled):
		log.Info().Err(err).Msg("Statement export disabled")
	default:
		log.Fatal().Err(err).Msg("Failed to create statement exporter")
	}

	sched.Start()

	// Metrics endpoint
	metricsServer := &http.Server{Addr: cfg.Addr(), Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	log.Info().Str("metrics_addr", cfg.Addr()).Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancelShutdown()

	sched.Stop()
	if consumer != nil {
		if err := consumer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job consumer")
		}
		if err := consumer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics server forced to shutdown")
	}
	cancel()

	log.Info().Msg("Worker service stopped")
}
