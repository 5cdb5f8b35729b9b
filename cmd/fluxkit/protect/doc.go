// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package protect implements the "fluxkit protect" command group:
//
//   - analyze runs the preservation pipeline on a flux capture or a
//     sector image and reports the protection artifacts it finds
//   - convert rewrites a saved protection map for a target disk
//     format, reporting what the format cannot represent
//
// Analysis results can be rendered as a plain report, a track grid, a
// markdown document, or JSON, and saved as a map snapshot for later
// conversion.
package protect
