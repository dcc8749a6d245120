package domain

import "errors"

var (
	// ErrInvalidInput marks values rejected before expansion: non-positive
	// amounts, non-positive installment counts, malformed dates, unknown flows.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionEmpty is returned when a message produced no extraction results.
	ErrExtractionEmpty = errors.New("extraction returned no results")

	// ErrPersistence marks a failure to store a draft.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
)
