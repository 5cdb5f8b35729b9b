// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the fluxkit configuration tree.
//
// [Default] returns a complete working configuration; a YAML file only
// overrides the fields it names. [Load] resolves the file for a CLI
// invocation: the FLUXKIT_CONFIG environment variable when set,
// ~/.config/fluxkit/fluxkit.yaml when present, defaults otherwise.
// Environment variables never override individual values; the file is
// the single source of truth. The one expansion performed is
// ${FLUXKIT_ROOT}, ${HOME} and similar path variables, so a file can
// relocate the whole state tree by overriding paths.root.
//
// [Config.Validate] aggregates every failure with errors.Join rather
// than stopping at the first, so a bad file reports all its problems
// in one pass.
package config
