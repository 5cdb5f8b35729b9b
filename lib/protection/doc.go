// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package protection detects and preserves copy protection artifacts.
//
// Protected disks deliberately violate the format rules a filesystem
// copy assumes: bits that read differently on every revolution, tracks
// written longer than one rotation holds, sync marks no stock
// controller emits. This package finds those artifacts in decoded
// track data, records them in a protection map, and prepares them for
// writing, so a duplicate misbehaves the same way the original does.
//
// The Analyzer works at three levels: a single track with its
// revolution reads, a whole sector image carved by geometry, and a
// flux capture run through the split/align/merge pipeline. Platform
// specific schemes (V-MAX!, RapidLok, Copylock and friends) are
// recognized by Detector implementations registered on the Analyzer.
package protection
