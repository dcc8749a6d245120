// Package api wires the HTTP surface of the ledger service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/api/handlers"
	"github.com/dvloznov/ledger-balance/internal/api/middleware"
	"github.com/dvloznov/ledger-balance/internal/balance"
	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/metrics"
	"github.com/dvloznov/ledger-balance/internal/repository"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Repo      repository.Repository
	Publisher jobs.Publisher
	Processor jobs.MessageProcessor
	Jobs      jobs.JobStore
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Log       zerolog.Logger

	ServiceName string
	Version     string
}

// NewRouter builds the chi router with middleware and all routes mounted.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Logger(d.Log))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         3600,
	}))

	health := handlers.NewHealthHandler(d.Repo, d.ServiceName, d.Version)
	messages := handlers.NewMessagesHandler(d.Publisher, d.Processor, d.Log)
	transactions := handlers.NewTransactionsHandler(balance.NewService(d.Repo), d.Log)
	jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Log)

	r.Get("/", health.Root)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Post("/webhooks/telegram", messages.TelegramWebhook)
		r.Post("/messages", messages.ProcessMessage)

		r.Get("/transactions/period", transactions.GetPeriod)

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{id}", jobsHandler.GetJob)
	})

	return r
}
