// Package domain defines the core entities and errors of the async media
// resolution service.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidSpec is returned when a transform spec is malformed,
	// e.g. non-positive dimensions or an unknown transform kind.
	ErrInvalidSpec = errors.New("invalid transform spec")

	// ErrBatchClosed is returned when media is registered under a batch
	// that has already been finalized.
	ErrBatchClosed = errors.New("batch is closed")

	// ErrBatchNotFound is returned when a batch ID does not name a live
	// batch. This covers both expired batches and guessed IDs; callers
	// must not be able to tell the two apart.
	ErrBatchNotFound = errors.New("batch not found")
)
