package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/pipeline"
)

const namespace = "ledger"

// Metrics holds every collector the service exports.
type Metrics struct {
	MessagesProcessed  *prometheus.CounterVec
	EntriesPersisted   prometheus.Counter
	DraftFailures      prometheus.Counter
	ExtractionsPerMsg  prometheus.Histogram
	ProcessingDuration prometheus.Histogram

	JobsProcessed *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_processed_total",
			Help:      "Messages processed, by outcome.",
		}, []string{"outcome"}),
		EntriesPersisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "entries_persisted_total",
			Help:      "Ledger entries written to storage.",
		}),
		DraftFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "draft_failures_total",
			Help:      "Drafts the store refused.",
		}),
		ExtractionsPerMsg: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extractions_per_message",
			Help:      "Movements extracted from one message.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		ProcessingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "processing_duration_seconds",
			Help:      "Time from receipt to stored entries.",
			Buckets:   prometheus.DefBuckets,
		}),
		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Background jobs finished, by status.",
		}, []string{"status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Emit implements pipeline.EventSink.
func (m *Metrics) Emit(_ context.Context, ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventExtracted:
		m.ExtractionsPerMsg.Observe(float64(ev.Extracted))
	case pipeline.EventDraftFailed:
		m.DraftFailures.Inc()
	case pipeline.EventCompleted:
		m.MessagesProcessed.WithLabelValues(string(ev.Outcome)).Inc()
		m.EntriesPersisted.Add(float64(ev.Persisted))
		m.ProcessingDuration.Observe(ev.Duration.Seconds())
	}
}

// ObserveJob counts a job that reached a settled state.
func (m *Metrics) ObserveJob(job *jobs.ProcessMessageJob) {
	m.JobsProcessed.WithLabelValues(string(job.Status)).Inc()
}
