package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MaxInstallments bounds how many months one purchase may be split over.
const MaxInstallments = 120

// ExtractionFields carries the raw values an extractor produced. Turn it into
// an ExtractionResult with NewExtractionResult before using it.
type ExtractionFields struct {
	Item          string
	Total         decimal.Decimal
	Date          civil.Date
	Category      string
	Flow          Flow
	Installments  int
	PaymentMethod PaymentMethod
	OriginalText  string
}

// ExtractionResult is one purchase or income mentioned in a message. It can
// only be built through NewExtractionResult, so every value in circulation
// has passed validation and cannot be changed afterwards.
type ExtractionResult struct {
	item          string
	total         decimal.Decimal
	date          civil.Date
	category      string
	flow          Flow
	installments  int
	paymentMethod PaymentMethod
	originalText  string
}

// NewExtractionResult validates f. Every violation is reported as ErrInvalidInput.
func NewExtractionResult(f ExtractionFields) (ExtractionResult, error) {
	item := strings.TrimSpace(f.Item)
	if item == "" {
		return ExtractionResult{}, fmt.Errorf("%w: item is required", ErrInvalidInput)
	}

	total, err := NormalizeAmount(f.Total)
	if err != nil {
		return ExtractionResult{}, err
	}

	if !f.Date.IsValid() {
		return ExtractionResult{}, fmt.Errorf("%w: invalid purchase date %v", ErrInvalidInput, f.Date)
	}

	category := strings.TrimSpace(f.Category)
	if category == "" {
		return ExtractionResult{}, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}

	if !f.Flow.Valid() {
		return ExtractionResult{}, fmt.Errorf("%w: unknown flow direction %q", ErrInvalidInput, f.Flow)
	}

	if f.Installments < 1 || f.Installments > MaxInstallments {
		return ExtractionResult{}, fmt.Errorf("%w: installment count must be between 1 and %d, got %d", ErrInvalidInput, MaxInstallments, f.Installments)
	}
	// Every installment must carry at least one cent.
	if Cents(total).LessThan(decimal.NewFromInt(int64(f.Installments))) {
		return ExtractionResult{}, fmt.Errorf("%w: %s cannot be split into %d installments", ErrInvalidInput, FormatAmount(total), f.Installments)
	}

	method := f.PaymentMethod
	switch method {
	case PaymentCredit, PaymentDebit, PaymentOther:
	case "":
		method = PaymentOther
	default:
		return ExtractionResult{}, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, method)
	}

	return ExtractionResult{
		item:          item,
		total:         total,
		date:          f.Date,
		category:      category,
		flow:          f.Flow,
		installments:  f.Installments,
		paymentMethod: method,
		originalText:  f.OriginalText,
	}, nil
}

func (r ExtractionResult) Item() string                 { return r.item }
func (r ExtractionResult) Total() decimal.Decimal       { return r.total }
func (r ExtractionResult) Date() civil.Date             { return r.date }
func (r ExtractionResult) Category() string             { return r.category }
func (r ExtractionResult) Flow() Flow                   { return r.flow }
func (r ExtractionResult) Installments() int            { return r.installments }
func (r ExtractionResult) PaymentMethod() PaymentMethod { return r.paymentMethod }
func (r ExtractionResult) OriginalText() string         { return r.originalText }
