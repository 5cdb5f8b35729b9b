// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package track implements the "fluxkit track" command group:
//
//   - measure: locate the data span in a track read
//   - syncs: list sync mark positions
//   - timing: reconstruct sector timing
//   - merge: majority-vote merge of a multi-revolution read
//
// All subcommands accept either a flux container (decoded revolutions)
// or a raw decoded track dump as input.
package track
