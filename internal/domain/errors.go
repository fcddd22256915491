package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrConcurrency = errors.New("rating version conflict")
	ErrConfig      = errors.New("invalid configuration")
	ErrStaleState  = errors.New("rating state stale after retries")
	ErrNotFound    = errors.New("not found")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type ConcurrencyError struct {
	PlayerID string
	Expected int64
	Actual   int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("player %s: expected version %d, found %d", e.PlayerID, e.Expected, e.Actual)
}

func (e *ConcurrencyError) Unwrap() error { return ErrConcurrency }
