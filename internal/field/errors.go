package field

import (
	"errors"
	"fmt"
)

// ShapeError reports a structural mismatch: a grid axis too small for the
// requested stencil, an interior margin that consumes an axis, or paired
// sequences of different lengths.
//
// Shape errors abort the computation with no partial output.
type ShapeError struct {
	// Op names the operation that rejected its input (e.g. "curl").
	Op string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape error: %s: %s", e.Op, e.Message)
}

// NewShapeError creates a ShapeError for op.
func NewShapeError(op, message string) *ShapeError {
	return &ShapeError{Op: op, Message: message}
}

// DomainError reports an input outside the mathematical domain of an
// operation: a filament with fewer than two segments, or a zero H_mass
// when forming the anomaly ratio.
type DomainError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: %s: %s", e.Op, e.Message)
}

// NewDomainError creates a DomainError for op.
func NewDomainError(op, message string) *DomainError {
	return &DomainError{Op: op, Message: message}
}

// IsShapeError returns true if err is or wraps a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// IsDomainError returns true if err is or wraps a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
