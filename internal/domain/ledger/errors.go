package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleRow means a guarded update affected zero rows: the row no
	// longer had capacity for the change or was deleted concurrently.
	ErrStaleRow = errors.New("ledger row is stale or has no capacity")
	// ErrRowNotFound means no ledger row matched a selection query.
	ErrRowNotFound = errors.New("ledger row not found")
)

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
