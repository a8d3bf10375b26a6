package engine

import (
	"errors"
)

// Error taxonomy for the transfer engine. Callers classify failures with
// errors.Is; call sites add context with github.com/pkg/errors wrapping.
var (
	// ErrInvalidInput marks bad paths or missing sources.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState marks an operation that is not valid for the job's
	// current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrIoFailure marks a transient read/write failure; retriable.
	ErrIoFailure = errors.New("io failure")

	// ErrIntegrityMismatch marks a post-copy digest mismatch; retriable.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrUnimplemented marks a requested feature that is not supported.
	ErrUnimplemented = errors.New("unimplemented")

	// ErrNotFound marks an unknown job id where existence is required.
	ErrNotFound = errors.New("not found")
)

// retriable reports whether an error should go through the retry policy.
// Integrity mismatches are treated identically to I/O failures.
func retriable(err error) bool {
	return errors.Is(err, ErrIoFailure) || errors.Is(err, ErrIntegrityMismatch)
}
