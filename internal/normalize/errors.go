package normalize

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnrecognized is matched (errors.Is) by *UnrecognizedError.
var ErrUnrecognized = errors.New("unrecognized format")

// UnrecognizedError is the file-level failure raised when no registered
// format matches the header.
type UnrecognizedError struct {
	Header []string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized format: no registered layout matches header %q", e.Header)
}

func (e *UnrecognizedError) Is(target error) bool { return target == ErrUnrecognized }

// UnexpectedTypeError reports a category column holding a value outside the
// known set for the format.
type UnexpectedTypeError struct {
	Index  int
	Column string
	Value  string
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("unrecognised %s=%q (column %d)", e.Column, e.Value, e.Index+1)
}

// UnexpectedContentError reports a value that could not be parsed or that
// did not satisfy the expected text pattern.
type UnexpectedContentError struct {
	Index  int
	Column string
	Value  string
	Reason string
}

func (e *UnexpectedContentError) Error() string {
	if e.Column == "" {
		return "malformed row: " + e.Reason
	}
	msg := fmt.Sprintf("unexpected %s content %q", e.Column, e.Value)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (column %d)", e.Index+1)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ConversionUnavailableError reports a value that was required for
// classification but could not be converted to the reporting currency.
type ConversionUnavailableError struct {
	Column   string
	Value    string
	Currency string
	At       time.Time
	Err      error
}

func (e *ConversionUnavailableError) Error() string {
	return fmt.Sprintf("no conversion for %s %s %s at %s: %v",
		e.Column, e.Value, e.Currency, e.At.Format(time.RFC3339), e.Err)
}

func (e *ConversionUnavailableError) Unwrap() error { return e.Err }

// InvalidRecordError is an internal defect: a row handler tried to build a
// record that breaks a record invariant.
type InvalidRecordError struct {
	Invariant string
}

func (e *InvalidRecordError) Error() string {
	return "invalid record: " + e.Invariant
}

// FailureKind classifies a row failure.
type FailureKind string

const (
	FailureUnexpectedType        FailureKind = "UnexpectedType"
	FailureUnexpectedContent     FailureKind = "UnexpectedContent"
	FailureConversionUnavailable FailureKind = "ConversionUnavailable"
	FailureInvalidRecord         FailureKind = "InvalidRecord"
)

// RowFailure is a row that produced no record. Index is the zero-based column
// position, or -1 when the failure is not tied to a column.
type RowFailure struct {
	Line   int         `json:"line"`
	Kind   FailureKind `json:"kind"`
	Column string      `json:"column,omitempty"`
	Index  int         `json:"index"`
	Value  string      `json:"value,omitempty"`
	Detail string      `json:"detail"`
}

// NewRowFailure converts a handler error into a RowFailure for line.
// Errors outside the taxonomy are reported as unexpected content.
func NewRowFailure(line int, err error) RowFailure {
	f := RowFailure{Line: line, Index: -1, Detail: err.Error()}

	var typeErr *UnexpectedTypeError
	var contentErr *UnexpectedContentError
	var convErr *ConversionUnavailableError
	var recErr *InvalidRecordError
	switch {
	case errors.As(err, &typeErr):
		f.Kind, f.Column, f.Index, f.Value = FailureUnexpectedType, typeErr.Column, typeErr.Index, typeErr.Value
	case errors.As(err, &contentErr):
		f.Kind, f.Column, f.Index, f.Value = FailureUnexpectedContent, contentErr.Column, contentErr.Index, contentErr.Value
	case errors.As(err, &convErr):
		f.Kind, f.Column, f.Value = FailureConversionUnavailable, convErr.Column, convErr.Value
	case errors.As(err, &recErr):
		f.Kind = FailureInvalidRecord
	default:
		f.Kind = FailureUnexpectedContent
	}
	return f
}

// AdvisoryKind classifies a non-fatal diagnostic.
type AdvisoryKind string

// AdvisoryCurrencyMismatch flags values taken from a currency other than the
// one the transaction was quoted in; the record may not balance exactly.
const AdvisoryCurrencyMismatch AdvisoryKind = "CurrencyMismatchWarning"

// Advisory is a diagnostic attached to a row that still produced a record.
type Advisory struct {
	Line   int          `json:"line"`
	Kind   AdvisoryKind `json:"kind"`
	Column string       `json:"column,omitempty"`
	Value  string       `json:"value,omitempty"`
	Detail string       `json:"detail"`
}
