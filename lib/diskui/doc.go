// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package diskui renders protection analysis results for terminals: a
// per-track surface map (RenderGrid), an interactive viewer built on
// bubbletea (NewModel), and a markdown renderer for analysis reports
// (RenderMarkdown).
//
// All output is pinned to the ANSI 256-color profile so rendering
// stays identical across terminals and in test environments with no
// TTY.
package diskui
