package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Outcome classifies how a message finished.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomePartial           Outcome = "partial"
	OutcomeExtractionEmpty   Outcome = "extraction_empty"
	OutcomeExtractionFailed  Outcome = "extraction_failed"
	OutcomeInvalidInput      Outcome = "invalid_input"
	OutcomePersistenceFailed Outcome = "persistence_failed"
)

// Succeeded reports whether at least one entry was stored.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomePartial
}

// EventType names a point in the life of a message.
type EventType string

const (
	EventExtracted   EventType = "message.extracted"
	EventDraftFailed EventType = "draft.failed"
	EventCompleted   EventType = "message.completed"
)

// Event is emitted by the processor as a message moves through the pipeline.
type Event struct {
	Type       EventType
	MessageID  string
	Outcome    Outcome
	Extracted  int
	Drafts     int
	Persisted  int
	DraftIndex int
	Item       string
	Err        error
	Duration   time.Duration
}

// EventSink receives pipeline events. Implementations must be safe for
// concurrent use.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// LogSink writes events to a zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink that logs through log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(_ context.Context, ev Event) {
	switch ev.Type {
	case EventExtracted:
		s.log.Debug().
			Str("message_id", ev.MessageID).
			Int("extracted", ev.Extracted).
			Msg("Message extracted")
	case EventDraftFailed:
		s.log.Warn().
			Err(ev.Err).
			Str("message_id", ev.MessageID).
			Int("draft_index", ev.DraftIndex).
			Str("item", ev.Item).
			Msg("Failed to persist ledger entry")
	case EventCompleted:
		var e *zerolog.Event
		switch ev.Outcome {
		case OutcomeSuccess:
			e = s.log.Info()
		case OutcomePartial, OutcomeExtractionEmpty:
			e = s.log.Warn()
		default:
			e = s.log.Error().Err(ev.Err)
		}
		e.Str("message_id", ev.MessageID).
			Str("outcome", string(ev.Outcome)).
			Int("extracted", ev.Extracted).
			Int("drafts", ev.Drafts).
			Int("persisted", ev.Persisted).
			Dur("duration", ev.Duration).
			Msg("Message processed")
	}
}
