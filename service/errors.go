package services

import "errors"

// Error categories used across the services. Controllers map these onto
// HTTP status codes; the pipeline maps anything else onto a failed recording.
var (
	// ErrValidation marks bad user input or a failed precondition. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("record not found")
)
