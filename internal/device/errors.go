package device

import "errors"

// Sentinel errors for registry operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConflict indicates another device of the same kind already uses
	// the address.
	ErrConflict = errors.New("device: address already in use")

	// ErrNotFound indicates the device does not exist.
	ErrNotFound = errors.New("device: not found")

	// ErrValidation indicates a field is missing or out of range.
	ErrValidation = errors.New("device: validation failed")
)
