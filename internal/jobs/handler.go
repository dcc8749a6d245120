package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/pipeline"
)

// MessageProcessor is the part of pipeline.Processor a job handler needs.
type MessageProcessor interface {
	Process(ctx context.Context, text string) pipeline.Result
}

// NewMessageHandler returns a JobHandler that runs each job's text through
// proc. Only extraction failures with nothing persisted are retried; every
// other failure is Permanent.
func NewMessageHandler(proc MessageProcessor, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job *ProcessMessageJob) error {
		res := proc.Process(ctx, job.Text)

		job.Outcome = string(res.Outcome)
		job.Drafts = res.Drafts
		job.Persisted = res.Persisted

		log.Info().
			Str("job_id", job.JobID).
			Str("source", job.Source).
			Str("outcome", job.Outcome).
			Str("persisted", res.Ratio()).
			Int("retry_count", job.RetryCount).
			Msg("Message job handled")

		if res.Success() {
			return nil
		}

		err := res.Err
		if err == nil {
			err = fmt.Errorf("message not processed: %s", res.Outcome)
		}
		if res.Outcome == pipeline.OutcomeExtractionFailed {
			return err
		}
		return Permanent(err)
	}
}
