package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvloznov/ledger-balance/internal/api"
	"github.com/dvloznov/ledger-balance/internal/app"
	"github.com/dvloznov/ledger-balance/internal/config"
	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-balance/internal/logger"
	"github.com/dvloznov/ledger-balance/internal/metrics"
	"github.com/dvloznov/ledger-balance/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := app.Logger(cfg, os.Stdout)
	ctx := context.Background()

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open ledger store")
	}
	defer repo.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	processor, err := app.NewProcessor(ctx, cfg, repo, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create message processor")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore(inmemory.WithRetention(cfg.Queue.JobRetention))
	jobQueue, err := app.NewQueue(cfg, jobStore, log, m.ObserveJob)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create job queue")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// The in-memory queue only lives in this process, so its consumer runs
	// here. With AMQP the worker binary consumes.
	if cfg.Queue.Backend == config.QueueMemory {
		log.Info().Int("workers", cfg.Queue.Workers).Msg("Starting in-process job workers")
		if err := jobQueue.Start(workerCtx, jobs.NewMessageHandler(processor, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job consumer")
		}
	}

	handler := api.NewRouter(api.Deps{
		Repo:        repo,
		Publisher:   jobQueue,
		Processor:   processor,
		Jobs:        jobStore,
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
		Log:         log,
		ServiceName: cfg.AppName,
		Version:     cfg.Version,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("storage", cfg.Storage.Backend).
			Str("queue", cfg.Queue.Backend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight jobs finish before the store goes away.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
