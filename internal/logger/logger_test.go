package logger

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"something", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Fatalf("parseLevel(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestOutputFor(t *testing.T) {
	if outputFor("stderr") != os.Stderr {
		t.Fatalf("stderr not selected")
	}
	if outputFor("STDERR") != os.Stderr {
		t.Fatalf("selection should ignore case")
	}
	if outputFor("") != os.Stdout || outputFor("file") != os.Stdout {
		t.Fatalf("stdout should be the default")
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("X", "val")
	if v := getenv("X", "def"); v != "val" {
		t.Fatalf("getenv returned %q, want 'val'", v)
	}
	if v := getenv("Y", "def"); v != "def" {
		t.Fatalf("getenv returned %q, want 'def'", v)
	}
}

func TestInitAndL(t *testing.T) {
	_ = os.Unsetenv("LOG_LEVEL")
	_ = os.Unsetenv("LOG_PRETTY")
	_ = os.Unsetenv("LOG_OUTPUT")
	Init()
	if L().GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", L().GetLevel())
	}

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LOG_OUTPUT", "stderr")
	Init()
	if L().GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", L().GetLevel())
	}
}

func TestLoggerAccessor_NotNil(t *testing.T) {
	// zero value forces the lazy Init path
	base = zerolog.Logger{}
	lg := L()
	if lg == nil {
		t.Fatalf("logger is nil")
	}
	if lg.GetLevel() == zerolog.NoLevel {
		t.Fatalf("logger level not initialized")
	}
}

func TestComponent_InheritsLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	Init()
	c := Component("dispatcher")
	if c.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("component level %v, want warn", c.GetLevel())
	}
}
