// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package axlelog configures the process-wide slog logger: level parsing,
// a compact terminal-friendly handler (colored when writing to a TTY), and
// a filter that drops third-party library records unless the level is debug.
package axlelog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const modulePrefix = "github.com/axle-run/axle"

// ParseLevel maps a level string (debug, info, warn/warning, error; case
// insensitive) to its slog.Level. Unrecognized strings fall back to warn
// rather than erroring, so a typo in a config file degrades gracefully.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

// Init installs the process-wide logger. format selects the line layout:
// "simple" is level+message+attrs, "verbose" prepends a timestamp, anything
// else falls through to the stdlib TextHandler layout. ANSI color is applied
// only when out is a terminal.
func Init(level slog.Level, out *os.File, format string) {
	var handler slog.Handler
	switch format {
	case "verbose":
		handler = &lineHandler{w: out, level: level, color: isTerminal(out), timestamp: true}
	case "simple", "":
		handler = &lineHandler{w: out, level: level, color: isTerminal(out)}
	default:
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	defaultLogger = slog.New(&moduleFilter{inner: handler, level: level})
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the configured logger, initializing a default (info,
// simple, stderr) one on first use if Init was never called.
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}

// OpenLogFile opens path for appending, creating it if needed, and returns
// the handle plus its cleanup func.
func OpenLogFile(path string) (*os.File, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// moduleFilter drops records whose call site is outside this module when the
// configured level is above debug, so retry chatter from HTTP or OTel
// internals only surfaces under -v debug. Records from axle's own packages
// always pass (subject to level).
type moduleFilter struct {
	inner slog.Handler
	level slog.Level
}

func (h *moduleFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.inner.Enabled(ctx, level)
}

func (h *moduleFilter) Handle(ctx context.Context, rec slog.Record) error {
	if h.level > slog.LevelDebug && !fromThisModule(rec.PC) {
		return nil
	}
	return h.inner.Handle(ctx, rec)
}

func (h *moduleFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &moduleFilter{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h *moduleFilter) WithGroup(name string) slog.Handler {
	return &moduleFilter{inner: h.inner.WithGroup(name), level: h.level}
}

func fromThisModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.HasPrefix(fn.Name(), modulePrefix)
}

// ANSI codes per level; reset terminates each colored level tag.
const ansiReset = "\033[0m"

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m"
	case l >= slog.LevelWarn:
		return "\033[33m"
	case l >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}

func levelTag(l slog.Level) string {
	s := l.String()
	if s == "WARNING" {
		s = "WARN"
	}
	return strings.ToUpper(s)
}

// lineHandler writes one compact line per record: LEVEL message k=v ...,
// optionally timestamped and colored. Attrs accumulated via WithAttrs are
// appended after the record's own.
type lineHandler struct {
	w         io.Writer
	level     slog.Level
	color     bool
	timestamp bool
	attrs     []slog.Attr
	group     string
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *lineHandler) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder

	if h.timestamp && !rec.Time.IsZero() {
		b.WriteString(rec.Time.Format("2006/01/02 15:04:05 "))
	}
	if h.color {
		b.WriteString(levelColor(rec.Level))
		b.WriteString(levelTag(rec.Level))
		b.WriteString(ansiReset)
	} else {
		b.WriteString(levelTag(rec.Level))
	}
	b.WriteByte(' ')
	b.WriteString(rec.Message)

	writeAttr := func(a slog.Attr) bool {
		b.WriteByte(' ')
		if h.group != "" {
			b.WriteString(h.group)
			b.WriteByte('.')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value.String())
		return true
	}
	rec.Attrs(writeAttr)
	for _, a := range h.attrs {
		writeAttr(a)
	}

	b.WriteByte('\n')
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}
