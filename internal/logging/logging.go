// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures folio's structured logger.
//
// Log lines are event names with key/value attributes:
//
//	logging.Info("history_restored", "chat_id", id, "messages", n)
//
// Until Init is called everything is discarded, so library packages can log
// freely in tests.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Log returns the process logger.
func Log() *slog.Logger {
	return current.Load()
}

// SetLogger replaces the process logger. A nil logger discards output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	current.Store(l)
}

// ParseLevel converts "debug", "info", "warn" or "error" into a slog.Level.
// Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Init installs a text logger at the given level. When file is non-empty
// output is appended to it; otherwise it goes to stderr. The returned closer
// releases the file and is never nil.
func Init(level, file string) (io.Closer, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if file == "" {
		SetLogger(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return io.NopCloser(nil), fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return io.NopCloser(nil), fmt.Errorf("failed to open log file %s: %w", file, err)
	}
	SetLogger(slog.New(slog.NewTextHandler(f, opts)))
	return f, nil
}

// InitWriter installs a text logger writing to w. Used by tests and the
// one-shot commands that log next to their own output.
func InitWriter(w io.Writer, level string) {
	SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})))
}

func Debug(msg string, args ...any) { Log().Debug(msg, args...) }
func Info(msg string, args ...any)  { Log().Info(msg, args...) }
func Warn(msg string, args ...any)  { Log().Warn(msg, args...) }
func Error(msg string, args ...any) { Log().Error(msg, args...) }
