package services

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a lookup that matched no row. Handlers translate it to 404.
var ErrNotFound = errors.New("not found")

// ValidationError is a caller mistake (missing or malformed input).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a failed embedding/generation/transcription call with
// the provider's message attached.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
