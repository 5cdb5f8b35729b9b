// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Fluxkit is the unified CLI for flux-level floppy disk recovery. It
// provides subcommands for flux container handling (capture), clock
// recovery (decode), track-level measurement and reconstruction
// (track), copy protection analysis and conversion (protect), the
// preservation catalog (catalog), platform profiles (profile), and an
// interactive disk surface viewer (view).
package main
