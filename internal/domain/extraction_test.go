package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validFields() ExtractionFields {
	return ExtractionFields{
		Item:          "  Notebook ",
		Total:         decimal.RequireFromString("1200.005"),
		Date:          date(2025, time.January, 27),
		Category:      "Electronics",
		Flow:          FlowExpense,
		Installments:  3,
		PaymentMethod: PaymentCredit,
		OriginalText:  "notebook 1200 in 3x on credit",
	}
}

func TestNewExtractionResult(t *testing.T) {
	r, err := NewExtractionResult(validFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Item() != "Notebook" {
		t.Errorf("Item() = %q, want trimmed value", r.Item())
	}
	if FormatAmount(r.Total()) != "1200.01" {
		t.Errorf("Total() = %s, want 1200.01", FormatAmount(r.Total()))
	}
	if r.Installments() != 3 || r.PaymentMethod() != PaymentCredit || r.Flow() != FlowExpense {
		t.Errorf("unexpected result %+v", r)
	}
	if r.OriginalText() != "notebook 1200 in 3x on credit" {
		t.Errorf("OriginalText() = %q", r.OriginalText())
	}
}

func TestNewExtractionResult_DefaultsPaymentMethod(t *testing.T) {
	f := validFields()
	f.PaymentMethod = ""
	r, err := NewExtractionResult(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PaymentMethod() != PaymentOther {
		t.Errorf("PaymentMethod() = %q, want other", r.PaymentMethod())
	}
}

func TestNewExtractionResult_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ExtractionFields)
	}{
		{"empty item", func(f *ExtractionFields) { f.Item = "" }},
		{"zero total", func(f *ExtractionFields) { f.Total = decimal.Zero }},
		{"negative total", func(f *ExtractionFields) { f.Total = decimal.NewFromInt(-5) }},
		{"zero date", func(f *ExtractionFields) { f.Date = date(0, 0, 0) }},
		{"empty category", func(f *ExtractionFields) { f.Category = " " }},
		{"unknown flow", func(f *ExtractionFields) { f.Flow = "transfer" }},
		{"zero installments", func(f *ExtractionFields) { f.Installments = 0 }},
		{"negative installments", func(f *ExtractionFields) { f.Installments = -2 }},
		{"too many installments", func(f *ExtractionFields) { f.Installments = MaxInstallments + 1 }},
		{"absurd installments", func(f *ExtractionFields) { f.Installments = 2000000000 }},
		{"fewer cents than installments", func(f *ExtractionFields) {
			f.Total = decimal.RequireFromString("0.01")
			f.Installments = 3
		}},
		{"total beyond storage precision", func(f *ExtractionFields) {
			f.Total = decimal.RequireFromString("100000000000000000000")
		}},
		{"unknown payment method", func(f *ExtractionFields) { f.PaymentMethod = "barter" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			if _, err := NewExtractionResult(f); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNewExtractionResult_Bounds(t *testing.T) {
	f := validFields()
	f.Total = decimal.RequireFromString("0.03")
	f.Installments = 3
	if _, err := NewExtractionResult(f); err != nil {
		t.Errorf("one cent per installment should be accepted: %v", err)
	}

	f = validFields()
	f.Total = MaxAmount
	f.Installments = MaxInstallments
	if _, err := NewExtractionResult(f); err != nil {
		t.Errorf("largest amount over the longest plan should be accepted: %v", err)
	}
}
