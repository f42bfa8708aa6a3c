// Package logging builds the slog handler used across spendwise.
//
// Usage:
//
//	level := new(slog.LevelVar)
//	logger, closer, err := logging.New(logging.Options{Level: level, Format: "text"})
//	defer closer.Close()
//	slog.SetDefault(logger)
//
// Text output is colored with tint; JSON output uses slog's JSON handler.
// When File is set, output goes to a size-rotated file instead of stderr.
// Every handler is wrapped so sensitive attributes are never written.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures New.
type Options struct {
	// Level is shared with the caller so it can be changed at runtime.
	// Nil means a fixed INFO level.
	Level *slog.LevelVar

	// Format is FormatText (default) or FormatJSON.
	Format string

	// File, when set, receives the log output with size-based rotation.
	File      string
	MaxSizeMB int
	MaxFiles  int

	// Writer overrides stderr when File is empty. Used by tests.
	Writer io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger built from opts and a closer for the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := opts.Level
	if level == nil {
		level = new(slog.LevelVar)
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	color := true
	if opts.Writer != nil {
		w = opts.Writer
		color = false
	}
	if opts.File != "" {
		rotating, err := NewRotatingWriter(RotationConfig{
			File:      opts.File,
			MaxSizeMB: opts.MaxSizeMB,
			MaxFiles:  opts.MaxFiles,
		})
		if err != nil {
			return nil, nil, err
		}
		w, closer, color = rotating, rotating, false
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
			NoColor:    !color,
		})
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(NewRedactingHandler(handler)), closer, nil
}

// ParseLevel maps debug, info, warn or error onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
