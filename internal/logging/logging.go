package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options controls where and how much toolkeepr logs.
type Options struct {
	Level string
	// File, when set, receives a copy of every record in addition to stderr.
	File string
	// Output replaces stderr; tests use it to capture records.
	Output io.Writer
}

// New creates a JSON *slog.Logger and installs it as the slog default so
// package-level slog calls in the stores share the same sink. The returned
// cleanup func closes the log file if one was opened; callers must defer it.
func New(opts Options) (*slog.Logger, func(), error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}
	cleanup := func() {}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	logger := slog.New(handler).With("app", "toolkeepr")
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// ParseLevel maps a case-insensitive level name to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
