// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package vfo

import (
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/fluxkit/lib/flux"
)

// Loop gain defaults. The low gain applies while locked, the high gain
// while acquiring. Values follow the FluxFox-derived tuning used by
// most software PLLs for double-density media.
const (
	DefaultGainLow  = 0.05
	DefaultGainHigh = 0.65
)

// DefaultSyncThreshold is the number of consecutive in-window pulses
// required before the VFO reports lock.
const DefaultSyncThreshold = 8

// defaultMaxBits bounds the growable output buffer. A dense track is
// roughly 100k bits per revolution; this allows a full multi-revolution
// capture with a wide margin.
const defaultMaxBits = 1 << 23

// ErrInterval is returned by ProcessPulse for a non-positive interval.
var ErrInterval = errors.New("vfo: interval must be positive")

// VFO recovers the bit clock from a stream of pulse intervals measured
// in sample ticks. Decoded bits accumulate MSB-first in an internal
// buffer; the clock-recovery behaviour is supplied by an Algorithm.
//
// The current cell estimate never leaves [0.8, 1.2] times the nominal
// cell, whatever the input does.
type VFO struct {
	alg Algorithm

	sampleRate float64
	cellNom    float64 // nominal bit cell, sample ticks
	cell       float64 // current estimate

	gainLow  float64
	gainHigh float64

	phase float64 // DPLL phase accumulator, fraction of a cell
	freq  float64 // DPLL frequency ratio relative to nominal

	syncCount     int
	syncThreshold int
	synced        bool

	jitterAmt  float64
	jitterSeed uint32

	pulsesTotal uint64
	pulsesValid uint64
	pulsesEarly uint64
	pulsesLate  uint64
	avgPhaseErr float64

	bits    []byte
	nbits   int
	maxBits int
}

// Stats is a snapshot of decode quality counters.
type Stats struct {
	PulsesTotal  uint64
	PulsesValid  uint64
	PulsesEarly  uint64
	PulsesLate   uint64
	ValidPercent float64
	AvgPhaseErr  float64
	Frequency    float64
	BitCell      float64
	BitsDecoded  int
}

// New builds a VFO for the given encoding's nominal cell time at the
// given sample rate.
func New(alg Algorithm, encoding flux.Encoding, sampleRate float64) (*VFO, error) {
	return NewWithCellTime(alg, sampleRate, encoding.CellNanoseconds())
}

// NewWithCellTime builds a VFO with an explicit nominal cell time in
// nanoseconds, for rates that do not match a standard encoding.
func NewWithCellTime(alg Algorithm, sampleRate, cellNS float64) (*VFO, error) {
	if alg == nil {
		return nil, errors.New("vfo: nil algorithm")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("vfo: sample rate %g must be positive", sampleRate)
	}
	if cellNS <= 0 {
		return nil, fmt.Errorf("vfo: cell time %gns must be positive", cellNS)
	}

	cell := cellNS / 1e9 * sampleRate
	return &VFO{
		alg:           alg,
		sampleRate:    sampleRate,
		cellNom:       cell,
		cell:          cell,
		gainLow:       DefaultGainLow,
		gainHigh:      DefaultGainHigh,
		freq:          1.0,
		syncThreshold: DefaultSyncThreshold,
		jitterSeed:    12345,
		maxBits:       defaultMaxBits,
	}, nil
}

// Algorithm reports the clock-recovery strategy in use.
func (v *VFO) Algorithm() Algorithm { return v.alg }

// NominalCell reports the nominal bit cell in sample ticks.
func (v *VFO) NominalCell() float64 { return v.cellNom }

// Cell reports the current bit cell estimate in sample ticks.
func (v *VFO) Cell() float64 { return v.cell }

// Synced reports whether the loop currently considers itself locked.
func (v *VFO) Synced() bool { return v.synced }

// SetGain sets the locked and acquisition loop gains. Both are clamped
// to [0.01, 1.0].
func (v *VFO) SetGain(low, high float64) {
	v.gainLow = clamp(low, 0.01, 1.0)
	v.gainHigh = clamp(high, 0.01, 1.0)
}

// SetSyncThreshold sets how many consecutive in-window pulses are
// required for lock. Values below 1 are raised to 1.
func (v *VFO) SetSyncThreshold(n int) {
	v.syncThreshold = max(n, 1)
}

// SetFluctuation enables the deterministic cell fluctuator: each pulse
// perturbs the cell estimate by a pseudo-random fraction of the nominal
// cell in [-amount, +amount]. Emulates unstable media for testing
// protection detectors. Amount is clamped to [0, 0.2]; 0 disables.
func (v *VFO) SetFluctuation(amount float64) {
	v.jitterAmt = clamp(amount, 0, 0.2)
}

// Fluctuation reports the configured fluctuator amount.
func (v *VFO) Fluctuation() float64 { return v.jitterAmt }

// SetMaxBits bounds the output buffer. Bits decoded past the bound are
// counted by ProcessPulse return values but not stored.
func (v *VFO) SetMaxBits(n int) {
	if n > 0 {
		v.maxBits = n
	}
}

// ForceSync declares the loop locked without waiting for the sync
// threshold, dropping to the low gain and clearing controller windup.
// Used when an upstream separator has already found a sync mark.
func (v *VFO) ForceSync() {
	v.synced = true
	v.syncCount = v.syncThreshold
	v.alg.forceSync()
}

// ProcessPulse consumes one pulse interval in sample ticks and returns
// the number of bits the interval decodes to (1 to 4).
func (v *VFO) ProcessPulse(interval float64) (int, error) {
	if interval <= 0 {
		return 0, ErrInterval
	}
	return v.alg.process(v, interval), nil
}

// ProcessIntervals consumes a slice of pulse intervals and returns the
// total bits decoded. Non-positive intervals are skipped; hardware
// capture glitches produce the occasional zero delta and must not
// abort the track.
func (v *VFO) ProcessIntervals(intervals []float64) int {
	total := 0
	for _, interval := range intervals {
		if interval <= 0 {
			continue
		}
		total += v.alg.process(v, interval)
	}
	return total
}

// ProcessFlux consumes raw pulse timestamps in sample ticks, decoding
// the interval between each successive pair. Timestamp subtraction
// wraps at 32 bits, matching capture hardware counters.
func (v *VFO) ProcessFlux(times []uint32) (int, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("vfo: need at least 2 flux timestamps, got %d", len(times))
	}
	total := 0
	for i := 1; i < len(times); i++ {
		interval := float64(times[i] - times[i-1])
		if interval <= 0 {
			continue
		}
		total += v.alg.process(v, interval)
	}
	return total, nil
}

// Bits returns the decoded bit buffer, packed MSB-first. Unused bits in
// the final byte are zero. The slice is owned by the VFO and valid
// until the next Process call or Reset.
func (v *VFO) Bits() []byte { return v.bits }

// BitLen reports the number of decoded bits stored in Bits.
func (v *VFO) BitLen() int { return v.nbits }

// ResetBits clears the output buffer without touching loop state, for
// decoding several revolutions with one warmed-up loop.
func (v *VFO) ResetBits() {
	v.bits = v.bits[:0]
	v.nbits = 0
}

// Reset returns the VFO to its initial state: nominal cell, unlocked,
// empty output, zeroed statistics and controller accumulators. The
// fluctuator seed is not reset, so a long jitter sequence does not
// repeat across tracks.
func (v *VFO) Reset() {
	v.cell = v.cellNom
	v.phase = 0
	v.freq = 1.0
	v.synced = false
	v.syncCount = 0
	v.alg.reset()
	v.ResetBits()
	v.ResetStats()
}

// Stats returns a snapshot of the decode quality counters.
func (v *VFO) Stats() Stats {
	s := Stats{
		PulsesTotal: v.pulsesTotal,
		PulsesValid: v.pulsesValid,
		PulsesEarly: v.pulsesEarly,
		PulsesLate:  v.pulsesLate,
		AvgPhaseErr: v.avgPhaseErr,
		Frequency:   v.freq,
		BitCell:     v.cell,
		BitsDecoded: v.nbits,
	}
	if v.pulsesTotal > 0 {
		s.ValidPercent = 100 * float64(v.pulsesValid) / float64(v.pulsesTotal)
	}
	return s
}

// ResetStats zeroes the pulse counters and smoothed phase error.
func (v *VFO) ResetStats() {
	v.pulsesTotal = 0
	v.pulsesValid = 0
	v.pulsesEarly = 0
	v.pulsesLate = 0
	v.avgPhaseErr = 0
}

// emit appends one decoded bit, MSB-first. Bits past maxBits are
// dropped.
func (v *VFO) emit(bit byte) {
	if v.nbits >= v.maxBits {
		return
	}
	if v.nbits%8 == 0 {
		v.bits = append(v.bits, 0)
	}
	if bit != 0 {
		v.bits[v.nbits/8] |= 1 << (7 - v.nbits%8)
	}
	v.nbits++
}

// setCell updates the cell estimate, holding it within 20% of nominal.
func (v *VFO) setCell(cell float64) {
	v.cell = clamp(cell, v.cellNom*0.8, v.cellNom*1.2)
}

// activeGain selects the loop gain for the current lock state.
func (v *VFO) activeGain() float64 {
	if v.synced {
		return v.gainLow
	}
	return v.gainHigh
}

// jitter returns the next fluctuator perturbation in sample ticks, or
// 0 when disabled.
func (v *VFO) jitter() float64 {
	if v.jitterAmt <= 0 {
		return 0
	}
	r := xorshift32(&v.jitterSeed)
	normalized := float64(r) / float64(math.MaxUint32)
	return (normalized*2 - 1) * v.jitterAmt * v.cellNom
}

func xorshift32(state *uint32) uint32 {
	x := *state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*state = x
	return x
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
