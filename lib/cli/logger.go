// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the process logger writing to stderr at level.
// When stderr is a terminal it uses slog.TextHandler for human-readable
// output; when piped or redirected (systemd, CI) it uses
// slog.JSONHandler for machine-parseable output.
func NewLogger(level slog.Leveler) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(output io.Writer, terminal bool, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	return slog.New(handler)
}

// NewWriterLogger creates a logger writing JSON lines to output, for
// log files and other non-terminal sinks.
func NewWriterLogger(output io.Writer, level slog.Leveler) *slog.Logger {
	return newLogger(output, false, level)
}
