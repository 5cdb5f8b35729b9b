// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package track analyzes decoded track buffers: length measurement,
// sync mark location, multi-revolution carving and voting, and sector
// timing reconstruction.
//
// The algorithms descend from the disk copiers of the era being
// preserved. Length measurement is the classic two-revolution trick:
// read more than one revolution, find where data stops, halve. The
// revolution merge is a per-byte majority vote seeded by the first
// revolution, so a single noisy read never outvotes a stable one.
// Timing analysis rebuilds the sector layout a drive controller would
// have seen, which is where most copy-protection schemes show up.
//
// All functions here work on decoded bytes, not raw flux; clock
// recovery happens in package vfo first.
package track
