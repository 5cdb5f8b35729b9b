// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package flux defines the fundamental types of the recovery
// pipeline: magnetic encodings and their bit-cell arithmetic, the
// capture model (revolutions of flux intervals and/or decoded
// bytes), content identifiers for captures, and data-rate estimation
// from raw interval streams.
//
// Everything downstream — clock recovery, track analysis, the
// protection pipeline, the container format — imports this package;
// it imports nothing from fluxkit except the standard library and
// the hash primitive.
package flux
