package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Flow is the direction of a ledger entry.
type Flow string

const (
	FlowIncome  Flow = "income"
	FlowExpense Flow = "expense"
)

// ParseFlow normalizes a flow direction. An empty value defaults to expense,
// which is the storage default; any other unknown value is rejected.
func ParseFlow(s string) (Flow, error) {
	switch Flow(strings.ToLower(strings.TrimSpace(s))) {
	case "", FlowExpense:
		return FlowExpense, nil
	case FlowIncome:
		return FlowIncome, nil
	default:
		return "", fmt.Errorf("%w: unknown flow direction %q", ErrInvalidInput, s)
	}
}

// Valid reports whether f is income or expense.
func (f Flow) Valid() bool {
	return f == FlowIncome || f == FlowExpense
}

// PaymentMethod describes how a purchase was paid.
type PaymentMethod string

const (
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
	PaymentOther  PaymentMethod = "other"
)

// ParsePaymentMethod maps free text to a payment method; anything that is not
// credit or debit is "other".
func ParsePaymentMethod(s string) PaymentMethod {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentCredit:
		return PaymentCredit
	case PaymentDebit:
		return PaymentDebit
	default:
		return PaymentOther
	}
}

// LedgerEntryDraft is an entry that has not been stored yet.
type LedgerEntryDraft struct {
	Item        string
	Amount      decimal.Decimal
	Date        civil.Date
	Category    string
	Flow        Flow
	Description string
}

// Validate checks the draft before it is handed to storage.
func (d LedgerEntryDraft) Validate() error {
	if strings.TrimSpace(d.Item) == "" {
		return fmt.Errorf("%w: item is required", ErrInvalidInput)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !d.Date.IsValid() {
		return fmt.Errorf("%w: invalid date", ErrInvalidInput)
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if !d.Flow.Valid() {
		return fmt.Errorf("%w: unknown flow direction %q", ErrInvalidInput, d.Flow)
	}
	return nil
}

// LedgerEntry is a stored draft.
type LedgerEntry struct {
	ID string
	LedgerEntryDraft
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SignedAmount is the amount for income and its negation for expense.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Flow == FlowIncome {
		return e.Amount
	}
	return e.Amount.Neg()
}
