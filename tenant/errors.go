package tenant

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel behind every ValidationError.
var ErrInvalidConfig = errors.New("tenant: invalid configuration")

// ValidationError reports a rejected administrative value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }
