package core

// errors.go defines the expected-failure values of the pipeline.
//
// ParseError and HeaderError are returned by value from the parsers and the
// header resolver and are always converted into an ImportOutcome by the
// orchestrator. They never reach callers of ImportCustomers.

import (
	"errors"
	"fmt"
	"strings"
)

// ParseErrorKind classifies why a parser rejected its input.
type ParseErrorKind string

const (
	KindCorrupt           ParseErrorKind = "corrupt"
	KindEmptyWorkbook     ParseErrorKind = "empty workbook"
	KindNoWorksheet       ParseErrorKind = "no worksheet"
	KindUnsupportedFormat ParseErrorKind = "unsupported format"
	KindEmptyFile         ParseErrorKind = "empty file"
	KindNoDataRows        ParseErrorKind = "no data rows"
)

// ParseError is returned when a parser cannot produce rows from the input.
type ParseError struct {
	Format SourceFormat
	Kind   ParseErrorKind
	Err    error // underlying cause, may be nil
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Format, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Format, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(format SourceFormat, kind ParseErrorKind, msg string, args ...any) *ParseError {
	var err error
	if msg != "" {
		err = fmt.Errorf(msg, args...)
	}
	return &ParseError{Format: format, Kind: kind, Err: err}
}

// IsParseKind reports whether err is a ParseError of the given kind.
func IsParseKind(err error, kind ParseErrorKind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == kind
}

// HeaderError is returned when the header row lacks required fields.
type HeaderError struct {
	Missing []string // field keys in schema order
}

func (e *HeaderError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Reasons returns one "missing header: <key>" entry per missing field.
func (e *HeaderError) Reasons() []string {
	out := make([]string, len(e.Missing))
	for i, key := range e.Missing {
		out[i] = "missing header: " + key
	}
	return out
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
