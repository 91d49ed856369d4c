// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var logLevel slog.Level

// New creates a logger writing to w, or to stderr when w is nil. Readings go
// to stdout, so logs never share a stream with them.
func New(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	logLevel = parseLogLevel(level)
	return slog.New(handlerForFormat(format, logLevel, w))
}

func LogLevel() slog.Level {
	return logLevel
}

func handlerForFormat(format string, logLevel slog.Level, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	}

	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)

	case "text":
		opts.ReplaceAttr = trimSource
		return slog.NewTextHandler(w, opts)

	default:
		panic(fmt.Sprintf("invalid format: %s", format))
	}
}

// trimSource shortens the source file to its last two directories and name
func trimSource(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok {
		return a
	}

	parts := strings.Split(filepath.ToSlash(src.File), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	src.File = filepath.Join(parts...)
	return a
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
