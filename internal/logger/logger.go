package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	base zerolog.Logger
)

// Init configures the global JSON logger.
//
// Environment variables (optional):
//   - LOG_LEVEL: debug|info|warn|error (default: info)
//   - LOG_PRETTY: true|false (default: false)
//   - LOG_OUTPUT: stdout|stderr (default: stdout). The normalize CLI mode
//     writes its JSON result to stdout and switches logs to stderr.
func Init() {
	level := parseLevel(getenv("LOG_LEVEL", "info"))
	pretty := strings.EqualFold(getenv("LOG_PRETTY", "false"), "true")

	zerolog.TimeFieldFormat = time.RFC3339Nano
	var w io.Writer = outputFor(getenv("LOG_OUTPUT", "stdout"))
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// L returns the global logger. Call Init() once on startup.
func L() *zerolog.Logger {
	if base.GetLevel() == zerolog.NoLevel {
		Init()
	}
	return &base
}

// Component returns a child of the global logger tagged with the given
// component name (e.g. "dispatcher", "coinbase").
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func outputFor(s string) io.Writer {
	if strings.EqualFold(s, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
