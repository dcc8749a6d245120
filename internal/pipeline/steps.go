package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/installments"
)

// PipelineStep represents a single step in the message pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	MessageID   string
	Text        string
	Extractions []domain.ExtractionResult
	Drafts      []domain.LedgerEntryDraft
	Entries     []*domain.LedgerEntry
	Failures    []DraftFailure
}

// DraftFailure records a draft the store refused.
type DraftFailure struct {
	Index int
	Draft domain.LedgerEntryDraft
	Err   error
}

// Step 1: ExtractStep asks the extractor for structured transactions.
type ExtractStep struct {
	extractor Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	results, err := s.extractor.ParseMessage(ctx, state.Text)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("extract: %w", domain.ErrExtractionEmpty)
	}
	state.Extractions = results
	return nil
}

// Step 2: ExpandStep turns each extraction into its installment drafts.
// Drafts are validated here so nothing reaches the store unless the whole
// message expanded cleanly.
type ExpandStep struct{}

func (s *ExpandStep) Execute(ctx context.Context, state *PipelineState) error {
	drafts := make([]domain.LedgerEntryDraft, 0, len(state.Extractions))
	for i, r := range state.Extractions {
		expanded, err := installments.Expand(r)
		if err != nil {
			return fmt.Errorf("expand extraction %d: %w", i, err)
		}
		for j, d := range expanded {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("expand extraction %d installment %d: %w", i, j+1, err)
			}
		}
		drafts = append(drafts, expanded...)
	}
	state.Drafts = drafts
	return nil
}

// Step 3: PersistStep writes every draft independently with bounded concurrency.
// A failed draft never cancels its siblings; the step only fails when nothing
// could be persisted.
type PersistStep struct {
	store       EntryStore
	concurrency int
	sink        EventSink
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	n := len(state.Drafts)
	if n == 0 {
		return fmt.Errorf("persist: %w: no drafts", domain.ErrPersistence)
	}

	entries := make([]*domain.LedgerEntry, n)
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(max(s.concurrency, 1))
	for i, draft := range state.Drafts {
		g.Go(func() error {
			entry, err := s.store.CreateEntry(ctx, draft)
			if err != nil {
				errs[i] = err
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	state.Entries = state.Entries[:0]
	for i := range state.Drafts {
		if errs[i] != nil {
			failure := DraftFailure{Index: i, Draft: state.Drafts[i], Err: errs[i]}
			state.Failures = append(state.Failures, failure)
			s.sink.Emit(ctx, Event{
				Type:       EventDraftFailed,
				MessageID:  state.MessageID,
				DraftIndex: i,
				Item:       failure.Draft.Item,
				Err:        failure.Err,
			})
			continue
		}
		state.Entries = append(state.Entries, entries[i])
	}

	if len(state.Entries) == 0 {
		return fmt.Errorf("persist: %w: 0 of %d drafts stored", domain.ErrPersistence, n)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewMessagePipeline creates the standard pipeline for a chat message.
func NewMessagePipeline(extractor Extractor, store EntryStore, concurrency int, sink EventSink) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	return NewPipeline(
		&ExtractStep{extractor: extractor},
		emitExtracted{sink: sink},
		&ExpandStep{},
		&PersistStep{store: store, concurrency: concurrency, sink: sink},
	)
}
