package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel matched by every InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports arguments an analysis cannot run on: empty series,
// out-of-range K, mismatched vector lengths, non-positive sizes.
type InvalidInputError struct {
	Op     string
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInput builds an InvalidInputError with a formatted reason.
func NewInvalidInput(op, field, format string, args ...interface{}) error {
	return &InvalidInputError{
		Op:     op,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IsInvalidInput reports whether err (or anything it wraps) is an InvalidInputError.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
