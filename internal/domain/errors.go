package domain

import "errors"

var (
	// ErrInvalidInput marks a malformed document or catalog entry. Fails
	// fast; never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionFailed marks an LLM transport or HTTP failure. Propagated
	// to the document's processing attempt.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrValidation marks a single extracted record failing field
	// validation. The record is dropped with a warning.
	ErrValidation = errors.New("validation error")

	// ErrStoreWrite marks a bulk graph write failure; the batch writer
	// bisects the batch before surfacing single-item failures.
	ErrStoreWrite = errors.New("store write failure")

	// ErrDocumentNotFound marks a missing edge endpoint during link
	// creation. Logged, no edge created, processing continues.
	ErrDocumentNotFound = errors.New("document not found")
)
