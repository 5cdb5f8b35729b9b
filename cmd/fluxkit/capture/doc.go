// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture implements the "fluxkit capture" command group for
// working with flux capture containers:
//
//   - info prints a container's header and chunk directory without
//     unpacking it
//   - pack builds a container from raw flux interval and decoded
//     track files
//   - unpack extracts a container's revolutions back into raw files
//
// Raw flux files are little-endian 32-bit sample-tick intervals, the
// same wire shape the container stores.
package capture
