// Package installments splits one extracted purchase into per-month drafts.
package installments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-balance/internal/billing"
	"github.com/dvloznov/ledger-balance/internal/domain"
)

// Split divides total into count two-place amounts. Every part gets the
// floored share in cents and the last part also takes the remainder, so the
// parts always add up to total exactly. The arithmetic stays in decimal, so
// large totals cannot overflow. Every part must be at least one cent.
func Split(total decimal.Decimal, count int) ([]decimal.Decimal, error) {
	if count < 1 || count > domain.MaxInstallments {
		return nil, fmt.Errorf("%w: installment count must be between 1 and %d, got %d", domain.ErrInvalidInput, domain.MaxInstallments, count)
	}

	cents := domain.Cents(total)
	if !cents.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", domain.ErrInvalidInput, total.String())
	}

	share, remainder := cents.QuoRem(decimal.NewFromInt(int64(count)), 0)
	if !share.IsPositive() {
		return nil, fmt.Errorf("%w: %s cannot be split into %d installments", domain.ErrInvalidInput, domain.FormatAmount(total), count)
	}

	parts := make([]decimal.Decimal, count)
	for i := range parts {
		parts[i] = domain.FromCents(share)
	}
	parts[count-1] = domain.FromCents(share.Add(remainder))
	return parts, nil
}

// Expand turns an extraction result into one draft per installment, in
// installment order.
//
// The first installment falls on the billing-cycle-resolved date and
// installment i falls i calendar months after it. Every date is derived from
// the purchase's own day-of-month and clamped to the end of its target month
// independently, never chained from the previous installment: a credit
// purchase on Jan 31 in four installments runs Feb 28, Mar 31, Apr 30, May 31.
// The cutoff day is applied only once.
func Expand(r domain.ExtractionResult) ([]domain.LedgerEntryDraft, error) {
	count := r.Installments()
	amounts, err := Split(r.Total(), count)
	if err != nil {
		return nil, err
	}

	offset := billing.OffsetFor(r)

	drafts := make([]domain.LedgerEntryDraft, 0, count)
	for i := 0; i < count; i++ {
		drafts = append(drafts, domain.LedgerEntryDraft{
			Item:        r.Item(),
			Amount:      amounts[i],
			Date:        domain.AddMonths(r.Date(), offset+i),
			Category:    r.Category(),
			Flow:        r.Flow(),
			Description: Describe(r.OriginalText(), i, count),
		})
	}
	return drafts, nil
}

// Describe annotates the original text with an installment marker when the
// purchase was split.
func Describe(text string, index, count int) string {
	if count <= 1 {
		return text
	}
	marker := fmt.Sprintf("(Installment %d/%d)", index+1, count)
	return strings.TrimSpace(text + " " + marker)
}
