package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

type MockEntryLister struct {
	ListEntriesInRangeFunc func(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error)
}

func (m *MockEntryLister) ListEntriesInRange(ctx context.Context, start, end civil.Date) ([]*domain.LedgerEntry, error) {
	return m.ListEntriesInRangeFunc(ctx, start, end)
}

func TestService_Period(t *testing.T) {
	start := civil.Date{Year: 2025, Month: time.January, Day: 1}
	end := civil.Date{Year: 2025, Month: time.January, Day: 31}

	var gotStart, gotEnd civil.Date
	repo := &MockEntryLister{
		ListEntriesInRangeFunc: func(ctx context.Context, s, e civil.Date) ([]*domain.LedgerEntry, error) {
			gotStart, gotEnd = s, e
			return []*domain.LedgerEntry{
				entry("2", "50.00", domain.FlowExpense, 20),
				entry("1", "100.00", domain.FlowIncome, 2),
			}, nil
		},
	}

	stmt, err := NewService(repo).Period(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, start, gotStart)
	assert.Equal(t, end, gotEnd)
	assert.Equal(t, "50.00", domain.FormatAmount(stmt.Total))
	assert.Equal(t, "2", stmt.Entries[0].ID)
}

func TestService_Period_SingleDayRange(t *testing.T) {
	day := civil.Date{Year: 2025, Month: time.March, Day: 3}
	repo := &MockEntryLister{
		ListEntriesInRangeFunc: func(ctx context.Context, s, e civil.Date) ([]*domain.LedgerEntry, error) {
			return nil, nil
		},
	}

	stmt, err := NewService(repo).Period(context.Background(), day, day)
	require.NoError(t, err)
	assert.Equal(t, 0, stmt.Count())
}

func TestService_Period_Errors(t *testing.T) {
	start := civil.Date{Year: 2025, Month: time.February, Day: 1}
	end := civil.Date{Year: 2025, Month: time.January, Day: 1}

	called := false
	repo := &MockEntryLister{
		ListEntriesInRangeFunc: func(ctx context.Context, s, e civil.Date) ([]*domain.LedgerEntry, error) {
			called = true
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(repo)

	_, err := svc.Period(context.Background(), start, end)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.False(t, called)

	_, err = svc.Period(context.Background(), end, start)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
