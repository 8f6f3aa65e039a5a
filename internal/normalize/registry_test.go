package normalize

import (
	"errors"
	"testing"
)

func TestRegistry_FirstMatchWins(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Format{SourceName: "narrow", Columns: []ColumnMatcher{Literal("Date"), Literal("Amount")}, Handler: noop})
	reg.MustRegister(Format{SourceName: "broad", Columns: []ColumnMatcher{Literal("Date"), Wildcard}, Handler: noop})

	f, _, err := reg.Resolve([]string{"Date", "Amount"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.SourceName != "narrow" {
		t.Fatalf("want narrow, got %s", f.SourceName)
	}

	f, _, err = reg.Resolve([]string{"Date", "Value"})
	if err != nil || f.SourceName != "broad" {
		t.Fatalf("want broad, got %v %v", f, err)
	}
}

func TestRegistry_Unrecognized(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Format{SourceName: "x", Columns: []ColumnMatcher{Literal("A")}, Handler: noop})

	header := []string{"B"}
	_, _, err := reg.Resolve(header)
	if !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("want ErrUnrecognized, got %v", err)
	}
	var ue *UnrecognizedError
	if !errors.As(err, &ue) || len(ue.Header) != 1 || ue.Header[0] != "B" {
		t.Fatalf("header not carried: %v", err)
	}
	header[0] = "changed"
	if ue.Header[0] != "B" {
		t.Fatalf("error should keep its own copy of the header")
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := NewRegistry()
	cases := []Format{
		{Columns: []ColumnMatcher{Wildcard}, Handler: noop},
		{SourceName: "no columns", Handler: noop},
		{SourceName: "no handler", Columns: []ColumnMatcher{Wildcard}},
	}
	for _, f := range cases {
		if err := reg.Register(f); err == nil {
			t.Fatalf("expected error for %+v", f.SourceName)
		}
	}
	if len(reg.Formats()) != 0 {
		t.Fatalf("invalid formats must not be registered")
	}
}

func TestRegistry_FormatsInOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		reg.MustRegister(Format{SourceName: name, Columns: []ColumnMatcher{Literal(name)}, Handler: noop})
	}
	got := reg.Formats()
	if len(got) != 3 || got[0].SourceName != "a" || got[2].SourceName != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
