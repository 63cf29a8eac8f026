package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/roach88/knotfield/internal/catalog"
	"github.com/roach88/knotfield/internal/config"
	"github.com/roach88/knotfield/internal/field"
	"github.com/roach88/knotfield/internal/fseries"
	"github.com/roach88/knotfield/internal/store"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Invalid configuration
	ErrCodeCancelled   = "E003" // Run cancelled
	ErrCodeStore       = "E004" // Run store failure
	ErrCodeNotFound    = "E005" // Path, knot or run not found
	ErrCodeNoBlocks    = "E006" // Knot has no coefficient block
	ErrCodeWriteFailed = "E007" // Output write error

	ErrCodeParse  = "E201" // Malformed .fseries input
	ErrCodeShape  = "E202" // Field/grid shape mismatch
	ErrCodeDomain = "E203" // Invalid numeric argument
)

// classify maps an error to its response code and exit code.
func classify(err error) (string, int) {
	var parseErr *fseries.ParseError
	switch {
	case errors.As(err, &parseErr):
		return ErrCodeParse, ExitFailure
	case field.IsShapeError(err):
		return ErrCodeShape, ExitFailure
	case field.IsDomainError(err):
		return ErrCodeDomain, ExitFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeCancelled, ExitFailure
	case config.IsValidationError(err):
		return ErrCodeConfig, ExitCommandError
	case errors.Is(err, catalog.ErrUnknownKnot),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound, ExitCommandError
	case errors.Is(err, catalog.ErrNoBlocks):
		return ErrCodeNoBlocks, ExitCommandError
	}
	return ErrCodeGeneric, ExitFailure
}

// fail reports err through the formatter and returns the matching
// ExitError. message prefixes the error in the returned value.
func fail(f *OutputFormatter, message string, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exit, code+": "+message, err)
}

// failWith is fail with an explicit code and exit status.
func failWith(f *OutputFormatter, code string, exit int, message string, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exit, code+": "+message, err)
}

// succeed writes data as the command result. A failed write cannot be
// reported through the same writer, so it only becomes the ExitError.
func succeed(f *OutputFormatter, data interface{}) error {
	if err := f.Success(data); err != nil {
		return WrapExitError(ExitFailure, ErrCodeWriteFailed+": failed to write output", err)
	}
	return nil
}
