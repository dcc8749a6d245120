// Package billing aligns purchase dates with credit-card statement cycles.
package billing

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// CutoffDay is the last day of the month that still posts to the current
// statement. Credit-like purchases made after it land on the next one.
const CutoffDay = 26

// IsCreditLike reports whether a purchase follows the statement cycle: it was
// paid on credit or split into more than one installment. An explicit debit
// payment settles immediately and never follows the cycle.
func IsCreditLike(method domain.PaymentMethod, installments int) bool {
	switch method {
	case domain.PaymentCredit:
		return true
	case domain.PaymentDebit:
		return false
	default:
		return installments > 1
	}
}

// Offset is the number of calendar months a purchase is pushed forward:
// 1 for credit-like purchases after CutoffDay, 0 otherwise.
func Offset(purchase civil.Date, creditLike bool) int {
	if creditLike && purchase.Day > CutoffDay {
		return 1
	}
	return 0
}

// Resolve returns the date a purchase is attributed to. Credit-like purchases
// after CutoffDay move one calendar month forward, clamped to the end of the
// target month; everything else is returned unchanged.
func Resolve(purchase civil.Date, creditLike bool) civil.Date {
	return domain.AddMonths(purchase, Offset(purchase, creditLike))
}

// OffsetFor is Offset for an extraction result.
func OffsetFor(r domain.ExtractionResult) int {
	return Offset(r.Date(), IsCreditLike(r.PaymentMethod(), r.Installments()))
}

// ResolveExtraction applies Resolve to an extraction result.
func ResolveExtraction(r domain.ExtractionResult) civil.Date {
	return domain.AddMonths(r.Date(), OffsetFor(r))
}
