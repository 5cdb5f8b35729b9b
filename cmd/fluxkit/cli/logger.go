// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger builds the logger commands share. Output goes to stderr so
// it never mixes with command results on stdout. On a terminal the
// text handler is used for readability; when stderr is redirected the
// JSON handler keeps log lines machine-parseable.
func NewLogger() *slog.Logger {
	options := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}

	return slog.New(handler)
}
