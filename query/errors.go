package query

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition is returned for mutating statements that would touch
	// every row of a table.
	ErrPrecondition = errors.New("query: precondition failed")

	// ErrUnknownField is returned when a request names a column the entity
	// does not declare.
	ErrUnknownField = errors.New("query: unknown field")

	// ErrInvalidKind is returned for an unsupported statement kind.
	ErrInvalidKind = errors.New("query: invalid statement kind")
)

// PreconditionError reports an update or delete without any WHERE condition.
type PreconditionError struct {
	Kind  Kind
	Table string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("query: refusing %s on %s without conditions", e.Kind, e.Table)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

func unknownField(e Entity, name string) error {
	return fmt.Errorf("%w: %q on %s", ErrUnknownField, name, e.Table)
}
