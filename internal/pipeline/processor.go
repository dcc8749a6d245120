package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// Result summarizes what happened to one message.
type Result struct {
	MessageID string
	Outcome   Outcome
	Extracted int
	Drafts    int
	Persisted int
	Entries   []*domain.LedgerEntry
	Failures  []DraftFailure
	Err       error
}

// Success reports whether at least one ledger entry was stored.
// A partially persisted message still counts as a success.
func (r Result) Success() bool {
	return r.Persisted > 0
}

// Ratio renders persisted/drafts, e.g. "2/3".
func (r Result) Ratio() string {
	return fmt.Sprintf("%d/%d", r.Persisted, r.Drafts)
}

// Processor runs chat messages through the extraction pipeline.
type Processor struct {
	extractor   Extractor
	store       EntryStore
	sink        EventSink
	concurrency int
	now         func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithConcurrency bounds how many drafts are persisted in parallel.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithSink sets the event sink. Nil sinks are ignored.
func WithSink(sink EventSink) Option {
	return func(p *Processor) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithClock overrides the clock used to time messages.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a processor over the given extractor and store.
func NewProcessor(extractor Extractor, store EntryStore, opts ...Option) *Processor {
	p := &Processor{
		extractor:   extractor,
		store:       store,
		sink:        NopSink{},
		concurrency: DefaultPersistConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process extracts, expands and persists one message. It never panics on bad
// input; every failure is reported through Result.Outcome and Result.Err.
func (p *Processor) Process(ctx context.Context, text string) Result {
	started := p.now()
	state := &PipelineState{
		MessageID: uuid.NewString(),
		Text:      strings.TrimSpace(text),
	}

	var err error
	if state.Text == "" {
		err = fmt.Errorf("Process: %w: empty message", domain.ErrInvalidInput)
	} else {
		err = NewMessagePipeline(p.extractor, p.store, p.concurrency, p.sink).Execute(ctx, state)
	}

	res := Result{
		MessageID: state.MessageID,
		Extracted: len(state.Extractions),
		Drafts:    len(state.Drafts),
		Persisted: len(state.Entries),
		Entries:   state.Entries,
		Failures:  state.Failures,
		Err:       err,
	}
	res.Outcome = classify(res)

	p.sink.Emit(ctx, Event{
		Type:      EventCompleted,
		MessageID: res.MessageID,
		Outcome:   res.Outcome,
		Extracted: res.Extracted,
		Drafts:    res.Drafts,
		Persisted: res.Persisted,
		Err:       res.Err,
		Duration:  p.now().Sub(started),
	})
	return res
}

func classify(r Result) Outcome {
	switch {
	case r.Err == nil && r.Persisted == r.Drafts:
		return OutcomeSuccess
	case r.Err == nil:
		return OutcomePartial
	case errors.Is(r.Err, domain.ErrExtractionEmpty):
		return OutcomeExtractionEmpty
	case errors.Is(r.Err, domain.ErrInvalidInput):
		return OutcomeInvalidInput
	case errors.Is(r.Err, domain.ErrPersistence):
		return OutcomePersistenceFailed
	default:
		return OutcomeExtractionFailed
	}
}

// emitExtracted reports the extraction count between steps.
type emitExtracted struct {
	sink EventSink
}

func (s emitExtracted) Execute(ctx context.Context, state *PipelineState) error {
	s.sink.Emit(ctx, Event{
		Type:      EventExtracted,
		MessageID: state.MessageID,
		Extracted: len(state.Extractions),
	})
	return nil
}
