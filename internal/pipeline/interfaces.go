package pipeline

import (
	"context"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// Extractor turns a free-form message into zero or more structured extractions.
// Implementations wrap domain.ErrInvalidInput when the model output cannot be
// mapped onto a valid extraction.
type Extractor interface {
	ParseMessage(ctx context.Context, text string) ([]domain.ExtractionResult, error)
}

// EntryStore persists a single ledger entry draft.
// This is the minimal write-side interface the pipeline depends on; the
// repositories under internal/infra implement it.
type EntryStore interface {
	CreateEntry(ctx context.Context, draft domain.LedgerEntryDraft) (*domain.LedgerEntry, error)
}
