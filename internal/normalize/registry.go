package normalize

import (
	"errors"

	"github.com/guttosm/cryptonorm/internal/domain/models"
)

// RowHandler classifies one data row of a resolved format into a canonical
// record. Handlers report input problems with the typed errors of this
// package and build records through NewRecord.
type RowHandler func(rc *RowContext, row *RawRow) (models.Record, error)

// Format is one registered export layout of a source.
//
// Fields:
//   - SourceName: exchange or source identifier (e.g. "Coinbase Transactions").
//   - Grouping:   output grouping label, shared by layouts of the same exchange.
//   - Category:   kind of source (e.g. "exchange").
//   - Columns:    positional header matchers.
//   - Handler:    row classification function bound to this layout.
type Format struct {
	SourceName string
	Grouping   string
	Category   string
	Columns    []ColumnMatcher
	Handler    RowHandler
}

// Registry is an ordered collection of formats.
//
// Registration happens once at startup; after that the registry is only read
// and may be shared by any number of concurrent dispatchers.
type Registry struct {
	formats []*Format
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends f. Formats are tried in registration order, so narrower or
// newer layouts must be registered before broader or older ones.
func (r *Registry) Register(f Format) error {
	switch {
	case f.SourceName == "":
		return errors.New("format source name is required")
	case len(f.Columns) == 0:
		return errors.New("format " + f.SourceName + " has no columns")
	case f.Handler == nil:
		return errors.New("format " + f.SourceName + " has no row handler")
	}
	def := f
	def.Columns = append([]ColumnMatcher(nil), f.Columns...)
	r.formats = append(r.formats, &def)
	return nil
}

// MustRegister is like Register but panics on an invalid definition.
func (r *Registry) MustRegister(f Format) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Resolve returns the first registered format whose columns all match header,
// with its captures. It fails with *UnrecognizedError when none matches.
func (r *Registry) Resolve(header []string) (*Format, Captures, error) {
	for _, f := range r.formats {
		if caps, ok := Match(header, f.Columns); ok {
			return f, caps, nil
		}
	}
	return nil, nil, &UnrecognizedError{Header: append([]string(nil), header...)}
}

// Formats returns the registered formats in resolution order.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.formats))
	for _, f := range r.formats {
		out = append(out, *f)
	}
	return out
}
