// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package fluxstore reads and writes the fluxkit capture container,
// the on-disk form of a [flux.Capture].
//
// A container is the 8-byte magic FLUXCAP1, a length-prefixed CBOR
// header carrying the capture's sampling context and a chunk
// directory, then one compressed chunk per revolution section (flux
// intervals and decoded bytes are stored separately). Each directory
// entry records the chunk's compression algorithm, both sizes, and a
// keyed BLAKE3 hash of the uncompressed bytes; extraction verifies
// all three, so a corrupt container fails loudly instead of yielding
// a plausible-looking capture.
package fluxstore
