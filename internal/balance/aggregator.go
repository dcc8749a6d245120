// Package balance computes signed period totals over stored ledger entries.
package balance

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// Aggregate sums entries with income positive and expense negative, starting
// from 0.00. It does not reorder, copy or modify entries. An entry with an
// unknown flow direction is a defect upstream and is reported, not skipped.
func Aggregate(entries []*domain.LedgerEntry) (decimal.Decimal, error) {
	total := domain.ZeroAmount
	for i, e := range entries {
		if e == nil {
			return decimal.Decimal{}, fmt.Errorf("%w: entry %d is nil", domain.ErrInvalidInput, i)
		}
		switch e.Flow {
		case domain.FlowIncome:
			total = total.Add(e.Amount)
		case domain.FlowExpense:
			total = total.Sub(e.Amount)
		default:
			return decimal.Decimal{}, fmt.Errorf("%w: entry %s has unknown flow %q", domain.ErrInvalidInput, e.ID, e.Flow)
		}
	}
	return total, nil
}

// Statement is the answer to a period query.
type Statement struct {
	Start   civil.Date
	End     civil.Date
	Entries []*domain.LedgerEntry
	Total   decimal.Decimal
}

// NewStatement aggregates entries for the inclusive range [start, end].
// Entries keep the order they were given in.
func NewStatement(start, end civil.Date, entries []*domain.LedgerEntry) (Statement, error) {
	total, err := Aggregate(entries)
	if err != nil {
		return Statement{}, err
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	return Statement{Start: start, End: end, Entries: entries, Total: total}, nil
}

// Count is the number of entries in the statement.
func (s Statement) Count() int {
	return len(s.Entries)
}

// Summary renders the one-line balance message relayed to chat users.
func (s Statement) Summary() string {
	return fmt.Sprintf("Balance from %s to %s: %s. %d transactions.",
		s.Start, s.End, domain.FormatAmount(s.Total), s.Count())
}
