// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package vfo recovers a bit clock from flux transition intervals.
//
// A floppy drive head produces a pulse at each magnetic transition; the
// time between pulses is some whole number of bit cells, distorted by
// motor speed wobble, media wear, and write-splice jitter. The VFO
// (variable frequency oscillator) tracks the actual cell length pulse
// by pulse and quantises each interval into bits: a run of zeros
// followed by the one that marks the pulse itself.
//
// Clock recovery strategies are values implementing Algorithm. Simple
// and Fixed quantise against the nominal cell with no feedback. PID
// closes the loop on per-pulse phase error, with PID2 and PID3 as gain
// presets for fast convergence and heavy damping. Adaptive ramps the
// loop gain while unlocked. DPLL integrates phase continuously instead
// of quantising per pulse.
//
// Separator layers byte framing on top of a VFO: it matches a 16-bit
// sync pattern in the raw bit stream, then splits the clock/data
// interleave into assembled data bytes.
//
// A VFO is stateful and strictly sequential. It must not be used from
// multiple goroutines; decode each track revolution with its own
// instance.
package vfo
