// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the fluxkit CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in
// cmd/fluxkit/commands and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, and structured help output
// with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Most commands bind their flags through a tagged params struct and
// [FlagsFromParams] rather than hand-rolling a FlagSet; embedding
// [JSONOutput] in the struct adds the conventional --json flag. A
// command whose non-zero exit is an answer rather than a failure (for
// example "protect analyze --fail-on-protection") returns [ExitError]
// so main exits silently with the code.
package cli
