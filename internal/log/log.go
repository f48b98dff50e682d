// Package log provides structured, colored logging for the xudt tools.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. It writes to stderr so that command
// output on stdout stays machine readable.
var Logger zerolog.Logger

// Component loggers.
var (
	Wallet  zerolog.Logger
	Indexer zerolog.Logger
	RPC     zerolog.Logger
	Signer  zerolog.Logger
	Storage zerolog.Logger
	CLI     zerolog.Logger
)

var output io.Writer = os.Stderr

func init() {
	Logger = NewConsoleLogger(output, "info")
	initComponentLoggers()
}

// Init configures the global logger. When file is non-empty, logs go to both
// the console (colored or JSON depending on jsonOutput) and the file, which
// is always JSON.
func Init(level string, jsonOutput bool, file string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var console io.Writer = output
	if !jsonOutput {
		console = consoleWriter(output)
	}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		console = zerolog.MultiLevelWriter(console, f)
	}

	Logger = zerolog.New(console).Level(lvl).With().Timestamp().Logger()
	initComponentLoggers()
	return nil
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	lvl, _ := ParseLevel(level)
	return zerolog.New(consoleWriter(w)).Level(lvl).With().Timestamp().Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	lvl, _ := ParseLevel(level)
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// ParseLevel converts a level name to a zerolog.Level. An empty name means
// info. Unknown names return info and an error.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func initComponentLoggers() {
	Wallet = WithComponent("wallet")
	Indexer = WithComponent("indexer")
	RPC = WithComponent("rpc")
	Signer = WithComponent("signer")
	Storage = WithComponent("storage")
	CLI = WithComponent("cli")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithNetwork returns a logger with a network field.
func WithNetwork(network string) zerolog.Logger {
	return Logger.With().Str("network", network).Logger()
}

// Benchmark helper for timing operations.
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		Logger.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}
