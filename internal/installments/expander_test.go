package installments

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

func extraction(t *testing.T, total string, day civil.Date, count int, method domain.PaymentMethod) domain.ExtractionResult {
	t.Helper()
	r, err := domain.NewExtractionResult(domain.ExtractionFields{
		Item:          "Notebook",
		Total:         decimal.RequireFromString(total),
		Date:          day,
		Category:      "Electronics",
		Flow:          domain.FlowExpense,
		Installments:  count,
		PaymentMethod: method,
		OriginalText:  "notebook on the card",
	})
	require.NoError(t, err)
	return r
}

func sum(drafts []domain.LedgerEntryDraft) decimal.Decimal {
	total := domain.ZeroAmount
	for _, d := range drafts {
		total = total.Add(d.Amount)
	}
	return total
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total string
		count int
		want  []string
	}{
		{"100.00", 1, []string{"100.00"}},
		{"100.00", 2, []string{"50.00", "50.00"}},
		{"100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"0.05", 3, []string{"0.01", "0.01", "0.03"}},
		{"1000.00", 7, []string{"142.85", "142.85", "142.85", "142.85", "142.85", "142.85", "142.90"}},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			parts, err := Split(decimal.RequireFromString(tt.total), tt.count)
			require.NoError(t, err)
			require.Len(t, parts, tt.count)

			total := domain.ZeroAmount
			for i, p := range parts {
				assert.Equal(t, tt.want[i], domain.FormatAmount(p))
				total = total.Add(p)
			}
			assert.True(t, total.Equal(decimal.RequireFromString(tt.total)), "parts sum to %s", total)
		})
	}
}

func TestSplit_RejectsZeroCount(t *testing.T) {
	_, err := Split(decimal.RequireFromString("10.00"), 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSplit_LargeTotalStaysExact(t *testing.T) {
	total := decimal.RequireFromString("100000000000000000000.01")

	parts, err := Split(total, 2)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "50000000000000000000.00", domain.FormatAmount(parts[0]))
	assert.Equal(t, "50000000000000000000.01", domain.FormatAmount(parts[1]))
	assert.True(t, parts[0].Add(parts[1]).Equal(total))
}

func TestSplit_RejectsSubCentShares(t *testing.T) {
	_, err := Split(decimal.RequireFromString("0.01"), 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Split(decimal.RequireFromString("10.00"), domain.MaxInstallments+1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExpand_LargestPlanReconciles(t *testing.T) {
	purchase := civil.Date{Year: 2025, Month: time.January, Day: 27}
	r := extraction(t, domain.MaxAmount.String(), purchase, domain.MaxInstallments, domain.PaymentCredit)

	drafts, err := Expand(r)
	require.NoError(t, err)
	require.Len(t, drafts, domain.MaxInstallments)
	assert.True(t, sum(drafts).Equal(domain.MaxAmount), "drafts sum to %s", sum(drafts))
	for i, d := range drafts {
		require.NoError(t, d.Validate(), "installment %d", i+1)
	}
}

func TestExpand_OneCentPerInstallment(t *testing.T) {
	r := extraction(t, "0.03", civil.Date{Year: 2025, Month: time.March, Day: 5}, 3, domain.PaymentCredit)

	drafts, err := Expand(r)
	require.NoError(t, err)
	for i, d := range drafts {
		assert.Equal(t, "0.01", domain.FormatAmount(d.Amount), "installment %d", i+1)
		assert.NoError(t, d.Validate())
	}
}

func TestExpand_SingleInstallment(t *testing.T) {
	purchase := civil.Date{Year: 2025, Month: time.January, Day: 28}
	r := extraction(t, "350.00", purchase, 1, domain.PaymentCredit)

	drafts, err := Expand(r)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	d := drafts[0]
	assert.Equal(t, "350.00", domain.FormatAmount(d.Amount))
	assert.Equal(t, civil.Date{Year: 2025, Month: time.February, Day: 28}, d.Date)
	assert.Equal(t, "notebook on the card", d.Description)
	assert.Equal(t, "Notebook", d.Item)
	assert.Equal(t, "Electronics", d.Category)
	assert.Equal(t, domain.FlowExpense, d.Flow)
	assert.NoError(t, d.Validate())
}

func TestExpand_SingleDebitKeepsDate(t *testing.T) {
	purchase := civil.Date{Year: 2025, Month: time.January, Day: 28}
	drafts, err := Expand(extraction(t, "20.00", purchase, 1, domain.PaymentDebit))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, purchase, drafts[0].Date)
}

func TestExpand_MultipleInstallments(t *testing.T) {
	purchase := civil.Date{Year: 2025, Month: time.March, Day: 10}
	r := extraction(t, "1000.00", purchase, 3, domain.PaymentCredit)

	drafts, err := Expand(r)
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	wantDates := []civil.Date{
		{Year: 2025, Month: time.March, Day: 10},
		{Year: 2025, Month: time.April, Day: 10},
		{Year: 2025, Month: time.May, Day: 10},
	}
	wantAmounts := []string{"333.33", "333.33", "333.34"}
	for i, d := range drafts {
		assert.Equal(t, wantDates[i], d.Date)
		assert.Equal(t, wantAmounts[i], domain.FormatAmount(d.Amount))
	}
	assert.Equal(t, "notebook on the card (Installment 1/3)", drafts[0].Description)
	assert.Equal(t, "notebook on the card (Installment 3/3)", drafts[2].Description)
	assert.True(t, sum(drafts).Equal(r.Total()))
}

func TestExpand_ClampsFromOriginalDay(t *testing.T) {
	purchase := civil.Date{Year: 2025, Month: time.January, Day: 31}
	// Day 31 is after the cutoff, so the series starts in February.
	r := extraction(t, "400.00", purchase, 4, domain.PaymentCredit)

	drafts, err := Expand(r)
	require.NoError(t, err)
	require.Len(t, drafts, 4)

	want := []civil.Date{
		{Year: 2025, Month: time.February, Day: 28},
		{Year: 2025, Month: time.March, Day: 31},
		{Year: 2025, Month: time.April, Day: 30},
		{Year: 2025, Month: time.May, Day: 31},
	}
	for i, d := range drafts {
		assert.Equal(t, want[i], d.Date, "installment %d", i+1)
		assert.Equal(t, "100.00", domain.FormatAmount(d.Amount))
	}
}

func TestExpand_LeapYearClamp(t *testing.T) {
	purchase := civil.Date{Year: 2024, Month: time.January, Day: 30}
	drafts, err := Expand(extraction(t, "90.00", purchase, 3, domain.PaymentCredit))
	require.NoError(t, err)

	want := []civil.Date{
		{Year: 2024, Month: time.February, Day: 29},
		{Year: 2024, Month: time.March, Day: 30},
		{Year: 2024, Month: time.April, Day: 30},
	}
	for i, d := range drafts {
		assert.Equal(t, want[i], d.Date, "installment %d", i+1)
	}
}

func TestExpand_ReclampsEachMonth(t *testing.T) {
	// Debit is never shifted, so the series starts on Jan 31 itself and each
	// month is clamped from day 31 rather than from the previous clamp.
	purchase := civil.Date{Year: 2024, Month: time.January, Day: 31}
	r := extraction(t, "400.00", purchase, 4, domain.PaymentDebit)

	drafts, err := Expand(r)
	require.NoError(t, err)

	want := []civil.Date{
		{Year: 2024, Month: time.January, Day: 31},
		{Year: 2024, Month: time.February, Day: 29},
		{Year: 2024, Month: time.March, Day: 31},
		{Year: 2024, Month: time.April, Day: 30},
	}
	for i, d := range drafts {
		assert.Equal(t, want[i], d.Date, "installment %d", i+1)
	}
}

func TestExpand_DatesStrictlyIncrease(t *testing.T) {
	purchase := civil.Date{Year: 2025, Month: time.November, Day: 27}
	drafts, err := Expand(extraction(t, "1200.00", purchase, 12, domain.PaymentCredit))
	require.NoError(t, err)
	require.Len(t, drafts, 12)

	assert.Equal(t, civil.Date{Year: 2025, Month: time.December, Day: 27}, drafts[0].Date)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.November, Day: 27}, drafts[11].Date)
	for i := 1; i < len(drafts); i++ {
		assert.True(t, drafts[i-1].Date.Before(drafts[i].Date))
	}
}

func TestExpand_ZeroValueResultRejected(t *testing.T) {
	_, err := Expand(domain.ExtractionResult{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "lunch", Describe("lunch", 0, 1))
	assert.Equal(t, "lunch (Installment 2/2)", Describe("lunch", 1, 2))
	assert.Equal(t, "(Installment 1/2)", Describe("", 0, 2))
}

func TestExpand_CutoffScenarios(t *testing.T) {
	d := func(m time.Month, day int) civil.Date { return civil.Date{Year: 2024, Month: m, Day: day} }

	tests := []struct {
		name      string
		total     string
		purchase  civil.Date
		count     int
		method    domain.PaymentMethod
		wantDates []civil.Date
		wantShare string
	}{
		{"credit after cutoff shifts", "150.00", d(time.January, 27), 1, domain.PaymentCredit,
			[]civil.Date{d(time.February, 27)}, "150.00"},
		{"credit on cutoff stays", "150.00", d(time.January, 26), 1, domain.PaymentCredit,
			[]civil.Date{d(time.January, 26)}, "150.00"},
		{"four installments before cutoff", "100.00", d(time.January, 20), 4, domain.PaymentCredit,
			[]civil.Date{d(time.January, 20), d(time.February, 20), d(time.March, 20), d(time.April, 20)}, "25.00"},
		{"four installments after cutoff", "100.00", d(time.January, 27), 4, domain.PaymentCredit,
			[]civil.Date{d(time.February, 27), d(time.March, 27), d(time.April, 27), d(time.May, 27)}, "25.00"},
		{"debit after cutoff stays", "500.00", d(time.January, 28), 1, domain.PaymentDebit,
			[]civil.Date{d(time.January, 28)}, "500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := Expand(extraction(t, tt.total, tt.purchase, tt.count, tt.method))
			require.NoError(t, err)
			require.Len(t, drafts, len(tt.wantDates))
			for i, draft := range drafts {
				assert.Equal(t, tt.wantDates[i], draft.Date, "installment %d", i+1)
				assert.Equal(t, tt.wantShare, domain.FormatAmount(draft.Amount), "installment %d", i+1)
			}
		})
	}
}
