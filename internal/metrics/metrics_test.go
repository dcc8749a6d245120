package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/pipeline"
)

func TestEmit_CountsOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.Emit(ctx, pipeline.Event{Type: pipeline.EventExtracted, Extracted: 2})
	m.Emit(ctx, pipeline.Event{Type: pipeline.EventDraftFailed})
	m.Emit(ctx, pipeline.Event{Type: pipeline.EventCompleted, Outcome: pipeline.OutcomePartial, Persisted: 1, Duration: time.Second})
	m.Emit(ctx, pipeline.Event{Type: pipeline.EventCompleted, Outcome: pipeline.OutcomeSuccess, Persisted: 3})
	m.Emit(ctx, pipeline.Event{Type: pipeline.EventCompleted, Outcome: pipeline.OutcomeSuccess, Persisted: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesProcessed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesProcessed.WithLabelValues("partial")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EntriesPersisted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExtractionsPerMsg))
}

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.HTTPRequests.WithLabelValues("GET", "/api/v1/health", "200").Inc()
	m.JobsProcessed.WithLabelValues("completed").Inc()

	count, err := testutil.GatherAndCount(reg, "ledger_http_requests_total", "ledger_jobs_processed_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestObserveJob(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveJob(&jobs.ProcessMessageJob{Status: jobs.JobStatusCompleted})
	m.ObserveJob(&jobs.ProcessMessageJob{Status: jobs.JobStatusRetrying})
	m.ObserveJob(&jobs.ProcessMessageJob{Status: jobs.JobStatusCompleted})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("retrying")))
}
