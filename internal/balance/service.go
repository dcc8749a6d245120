package balance

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// EntryLister returns stored entries whose value date falls inside [start, end],
// newest first.
type EntryLister interface {
	ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error)
}

// Service answers period balance queries.
type Service struct {
	repo EntryLister
}

// NewService creates a balance service backed by repo.
func NewService(repo EntryLister) *Service {
	return &Service{repo: repo}
}

// Period returns the entries of the inclusive range and their signed total.
func (s *Service) Period(ctx context.Context, start, end civil.Date) (Statement, error) {
	if !start.IsValid() || !end.IsValid() {
		return Statement{}, fmt.Errorf("%w: invalid period %v..%v", domain.ErrInvalidInput, start, end)
	}
	if end.Before(start) {
		return Statement{}, fmt.Errorf("%w: end date %s is before start date %s", domain.ErrInvalidInput, end, start)
	}

	entries, err := s.repo.ListEntriesInRange(ctx, start, end)
	if err != nil {
		return Statement{}, fmt.Errorf("Period: list entries: %w", err)
	}

	return NewStatement(start, end, entries)
}
