package normalize

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one data line of an input file, with cells addressable by the
// labels of the matched header.
type RawRow struct {
	Fields    []string
	Line      int
	Timestamp time.Time

	header []string
	index  map[string]int
}

func newRawRow(header []string, index map[string]int, fields []string, line int) *RawRow {
	return &RawRow{Fields: fields, Line: line, header: header, index: index}
}

// NewRawRow builds a row outside of a dispatcher run (handler tests, custom
// pipelines). Duplicate labels resolve to their first position.
func NewRawRow(header, fields []string, line int) *RawRow {
	return newRawRow(header, headerIndex(header), fields, line)
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// Index returns the position of label in the header, or -1.
func (r *RawRow) Index(label string) int {
	if i, ok := r.index[label]; ok {
		return i
	}
	return -1
}

// Get returns the trimmed cell under label, or "" when the label is absent.
func (r *RawRow) Get(label string) string {
	return r.Field(r.Index(label))
}

// Field returns the trimmed cell at position i, or "" when out of range.
func (r *RawRow) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// Label returns the header label at position i.
func (r *RawRow) Label(i int) string {
	if i < 0 || i >= len(r.header) {
		return ""
	}
	return r.header[i]
}

// UnexpectedType builds the error for an unknown category value under label.
func (r *RawRow) UnexpectedType(label string) error {
	return &UnexpectedTypeError{Index: r.Index(label), Column: label, Value: r.Get(label)}
}

// UnexpectedContent builds the error for a value under label that does not
// have the expected shape.
func (r *RawRow) UnexpectedContent(label, reason string) error {
	return &UnexpectedContentError{Index: r.Index(label), Column: label, Value: r.Get(label), Reason: reason}
}

// Decimal parses the cell under label, tolerating currency symbols and
// grouping separators.
func (r *RawRow) Decimal(label string) (decimal.Decimal, error) {
	d, err := ParseAmount(r.Get(label))
	if err != nil {
		return decimal.Zero, r.UnexpectedContent(label, "not a number")
	}
	return d, nil
}

// OptionalDecimal is like Decimal but an empty cell yields an invalid
// NullDecimal instead of an error.
func (r *RawRow) OptionalDecimal(label string) (decimal.NullDecimal, error) {
	if CleanAmount(r.Get(label)) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := r.Decimal(label)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// SetTimestamp parses the cell under label into r.Timestamp (UTC).
func (r *RawRow) SetTimestamp(label string) error {
	ts, err := ParseTimestamp(r.Get(label))
	if err != nil {
		return r.UnexpectedContent(label, "not a timestamp")
	}
	r.Timestamp = ts
	return nil
}

var (
	amountNoise  = strings.NewReplacer("£", "", "€", "", "$", "", " ", "", "\u00a0", "")
	decimalComma = regexp.MustCompile(`\d,\d{1,2}(?:\D|$)`)
)

// HasDecimalComma reports whether s holds a comma used as decimal separator,
// as in "0,5" or "£12,34 GBP". Grouping commas are always followed by three
// digits.
func HasDecimalComma(s string) bool {
	return decimalComma.MatchString(s)
}

// CleanAmount strips currency symbols, grouping separators and spaces. A
// decimal comma is kept, so the result does not parse.
func CleanAmount(s string) string {
	s = amountNoise.Replace(strings.TrimSpace(s))
	if HasDecimalComma(s) {
		return s
	}
	return strings.ReplaceAll(s, ",", "")
}

// ParseAmount parses a decimal amount after CleanAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(CleanAmount(s))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp layouts found in exchange exports and
// returns the instant in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Converter turns an amount in currency at a point in time into the
// reporting currency.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, currency string, at time.Time) (decimal.Decimal, error)
}

// Policy holds the read-only flags that steer row classification.
type Policy struct {
	ReportingCurrency    string
	ZeroFeeBuyAsReferral bool
}

// RowContext is what a row handler sees besides the row itself: the resolved
// format with its captures, the policy and the per-file converter.
type RowContext struct {
	Format   *Format
	Captures Captures
	Policy   Policy

	ctx        context.Context
	converter  Converter
	advisories []Advisory
}

// NewRowContext builds a context for running handlers directly.
func NewRowContext(ctx context.Context, f *Format, caps Captures, policy Policy, conv Converter) *RowContext {
	return &RowContext{Format: f, Captures: caps, Policy: policy, ctx: ctx, converter: conv}
}

// Convert converts amount to the reporting currency. Amounts already in the
// reporting currency are returned unchanged.
func (rc *RowContext) Convert(amount decimal.Decimal, currency string, at time.Time) (decimal.Decimal, error) {
	if strings.EqualFold(currency, rc.Policy.ReportingCurrency) {
		return amount, nil
	}
	if rc.converter == nil {
		return decimal.Zero, errNoConverter
	}
	return rc.converter.Convert(rc.ctx, amount, currency, at)
}

// Warn records a non-fatal advisory for row.
func (rc *RowContext) Warn(row *RawRow, kind AdvisoryKind, column, detail string) {
	rc.advisories = append(rc.advisories, Advisory{
		Line:   row.Line,
		Kind:   kind,
		Column: column,
		Value:  row.Get(column),
		Detail: detail,
	})
}

// Advisories returns the advisories recorded so far.
func (rc *RowContext) Advisories() []Advisory {
	return rc.advisories
}

var errNoConverter = errors.New("no currency converter configured")
