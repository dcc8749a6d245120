package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// TransformModelOutput converts decoded model JSON into validated extraction
// results. It accepts a bare array, an object with a "transactions" array, or
// a single movement object. A missing date falls back to today and a missing
// installment count to 1.
func TransformModelOutput(parsed interface{}, originalText string, today civil.Date) ([]domain.ExtractionResult, error) {
	items, err := movementList(parsed)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ExtractionResult, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: movement %d is %T, want object", domain.ErrInvalidInput, i, item)
		}
		r, err := transformMovement(obj, originalText, today)
		if err != nil {
			return nil, fmt.Errorf("movement %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func movementList(parsed interface{}) ([]interface{}, error) {
	switch v := parsed.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		if txAny, ok := v["transactions"]; ok {
			txSlice, ok := txAny.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: 'transactions' is %T, want array", domain.ErrInvalidInput, txAny)
			}
			return txSlice, nil
		}
		if len(v) == 0 {
			return nil, nil
		}
		return []interface{}{v}, nil
	default:
		return nil, fmt.Errorf("%w: model output is %T, want array or object", domain.ErrInvalidInput, parsed)
	}
}

func transformMovement(obj map[string]interface{}, originalText string, today civil.Date) (domain.ExtractionResult, error) {
	invalid := func(err error) (domain.ExtractionResult, error) {
		return domain.ExtractionResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	item, err := getStringField(obj, "item", true)
	if err != nil {
		return invalid(err)
	}
	total, err := getDecimalField(obj, "total")
	if err != nil {
		return invalid(err)
	}
	category, err := getStringField(obj, "category", true)
	if err != nil {
		return invalid(err)
	}

	date := today
	dateStr, err := getOptionalStringField(obj, "date")
	if err != nil {
		return invalid(err)
	}
	if dateStr != nil {
		if date, err = domain.ParseDate(*dateStr); err != nil {
			return domain.ExtractionResult{}, err
		}
	}

	flowStr, err := getStringField(obj, "flow", false)
	if err != nil {
		return invalid(err)
	}
	flow, err := domain.ParseFlow(flowStr)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	installments := 1
	if n, err := getOptionalIntField(obj, "installments"); err != nil {
		return invalid(err)
	} else if n != nil {
		installments = *n
	}

	methodStr, err := getStringField(obj, "payment_method", false)
	if err != nil {
		return invalid(err)
	}

	return domain.NewExtractionResult(domain.ExtractionFields{
		Item:          item,
		Total:         total,
		Date:          date,
		Category:      category,
		Flow:          flow,
		Installments:  installments,
		PaymentMethod: domain.ParsePaymentMethod(methodStr),
		OriginalText:  originalText,
	})
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return strings.TrimSpace(val), nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

// getDecimalField reads a required amount. Numbers keep their exact decimal
// text when the JSON was decoded with UseNumber.
func getDecimalField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Decimal{}, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", ".")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

// getOptionalIntField accepts integral numbers only; 2.0 is 2, 2.5 is an error.
func getOptionalIntField(m map[string]interface{}, key string) (*int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		f = parsed
	case float64:
		f = val
	case int:
		n := val
		return &n, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want integer or null", key, v)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, fmt.Errorf("field %q is %v, want integer", key, f)
	}
	n := int(f)
	return &n, nil
}
