package shared

import "errors"

var (
	// ErrNotFound indicates the order, item or invoice no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a confirm transaction lost a numbering race.
	// Callers decide whether to re-invoke confirm; the engine never retries.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input a write would otherwise corrupt.
	ErrValidation = errors.New("validation failed")
)
