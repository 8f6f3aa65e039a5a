package normalize

import (
	"fmt"
	"regexp"
)

// Captures maps a header position to the sub-string captured by the
// Pattern matcher at that position. Valid for the processing of one file.
type Captures map[int]string

// ColumnMatcher matches a single header cell. The set of implementations is
// closed: Literal, Wildcard and Pattern.
type ColumnMatcher interface {
	// matchCell reports whether cell satisfies the matcher and, for patterns,
	// the captured sub-string.
	matchCell(cell string) (capture string, captured bool, ok bool)
	String() string
}

// Literal matches a header cell byte for byte.
type Literal string

func (l Literal) matchCell(cell string) (string, bool, bool) {
	return "", false, cell == string(l)
}

func (l Literal) String() string { return fmt.Sprintf("%q", string(l)) }

type wildcard struct{}

func (wildcard) matchCell(string) (string, bool, bool) { return "", false, true }

func (wildcard) String() string { return "*" }

// Wildcard matches any header cell and ignores it.
var Wildcard ColumnMatcher = wildcard{}

// Pattern matches a header cell against a regular expression and captures one
// of its groups. Expressions are not implicitly anchored.
type Pattern struct {
	re    *regexp.Regexp
	group int
}

// NewPattern compiles expr; group selects the sub-match recorded into the
// captures (0 is the whole match).
func NewPattern(expr string, group int) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile header pattern %q: %w", expr, err)
	}
	if group < 0 || group > re.NumSubexp() {
		return Pattern{}, fmt.Errorf("header pattern %q has no group %d", expr, group)
	}
	return Pattern{re: re, group: group}, nil
}

// MustPattern is like NewPattern but panics on an invalid expression. It is
// meant for format definitions registered at startup.
func MustPattern(expr string, group int) Pattern {
	p, err := NewPattern(expr, group)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) matchCell(cell string) (string, bool, bool) {
	m := p.re.FindStringSubmatch(cell)
	if m == nil {
		return "", false, false
	}
	return m[p.group], true, true
}

func (p Pattern) String() string { return "/" + p.re.String() + "/" }

// Match checks header against columns position by position. The header must
// have exactly as many cells as there are matchers and every matcher must
// succeed; otherwise ok is false.
func Match(header []string, columns []ColumnMatcher) (caps Captures, ok bool) {
	if len(header) != len(columns) {
		return nil, false
	}
	caps = Captures{}
	for i, m := range columns {
		c, captured, ok := m.matchCell(header[i])
		if !ok {
			return nil, false
		}
		if captured {
			caps[i] = c
		}
	}
	return caps, true
}
