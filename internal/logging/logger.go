// Package logging builds the process-wide logger: readable output on the
// console plus an optional JSON log file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// FileEnvVar overrides the configured log file path.
const FileEnvVar = "PYFMT_LOG_FILE"

// Options controls where logs go.
type Options struct {
	File  string // JSON log file; empty disables file logging unless FileEnvVar is set
	Color bool   // colour console output by level
}

// New returns a logger writing human-readable lines to stderr at the level
// held by level, and full debug records to the log file when one is set.
// The returned Closer is nil when no file was opened. A file that cannot be
// opened is reported as an error alongside a working console-only logger.
func New(stderr io.Writer, level *slog.LevelVar, opts Options) (*slog.Logger, io.Closer, error) {
	console := &consoleHandler{w: stderr, level: level, color: opts.Color}

	path := os.Getenv(FileEnvVar)
	if path == "" {
		path = opts.File
	}
	if path == "" {
		return slog.New(console), nil, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return slog.New(console), nil, fmt.Errorf("opening log file: %w", err)
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(&multiHandler{handlers: []slog.Handler{file, console}}), f, nil
}

// ColorEnabled reports whether console colour should be used: not disabled
// by flag or by the NO_COLOR convention.
func ColorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	_, set := os.LookupEnv("NO_COLOR")
	return !set
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Record is passed by value in the interface
func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}

const reset = "\x1b[0m"

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\x1b[38;20m",
	slog.LevelInfo:  "\x1b[32;1m",
	slog.LevelWarn:  "\x1b[33;20m",
	slog.LevelError: "\x1b[31;20m",
}

type consoleHandler struct {
	w     io.Writer
	level *slog.LevelVar
	color bool
	attrs []slog.Attr
}

func (c *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level.Level()
}

//nolint:gocritic // slog.Record is passed by value in the interface
func (c *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var line []byte
	switch {
	case record.Level >= slog.LevelError:
		line = fmt.Appendf(line, "Error: %s", record.Message)
	case record.Level >= slog.LevelWarn:
		line = fmt.Appendf(line, "Warning: %s", record.Message)
	default:
		line = append(line, record.Message...)
	}

	// Attributes are noise on the console unless debugging; errors always show.
	debug := c.level.Level() <= slog.LevelDebug
	appendAttr := func(a slog.Attr) bool {
		if a.Key == "error" || a.Key == "err" {
			line = fmt.Appendf(line, ": %v", a.Value)
		} else if debug {
			line = fmt.Appendf(line, " %s=%v", a.Key, a.Value)
		}
		return true
	}
	for _, a := range c.attrs {
		appendAttr(a)
	}
	record.Attrs(appendAttr)

	if c.color {
		if code, ok := levelColors[record.Level]; ok {
			line = append([]byte(code), line...)
			line = append(line, reset...)
		}
	}
	line = append(line, '\n')
	_, err := c.w.Write(line)
	return err
}

func (c *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{
		w:     c.w,
		level: c.level,
		color: c.color,
		attrs: append(c.attrs[:len(c.attrs):len(c.attrs)], attrs...),
	}
}

func (c *consoleHandler) WithGroup(_ string) slog.Handler {
	return c
}
