package fseries

import "fmt"

// ParseError reports a malformed coefficient row or an inconsistent block.
type ParseError struct {
	// Line is the 1-based line number, or 0 for block-level errors.
	Line int

	// Text is the offending line as read.
	Text string

	// Message is a human-readable description.
	Message string

	// Err is the underlying conversion error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error: line %d %q: %s", e.Line, e.Text, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
