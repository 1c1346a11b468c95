package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingResource reports a date/section with no saved data. Callers
	// usually replace it with a zeroed default.
	ErrMissingResource = errors.New("missing resource")
	// ErrInvalidInput reports a malformed or out-of-range entry.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence reports an I/O failure while loading or saving.
	ErrPersistence = errors.New("persistence failure")
	// ErrDataInconsistency reports saved data that no longer matches the catalog.
	ErrDataInconsistency = errors.New("data inconsistency")
)

// InputError describes which field was rejected at the input boundary.
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }
