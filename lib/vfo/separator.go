// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package vfo

import (
	"fmt"

	"github.com/bureau-foundation/fluxkit/lib/flux"
)

// defaultMaxBytes bounds the separator's growable output buffer.
const defaultMaxBytes = 1 << 20

// Separator recovers data bytes from a pulse stream: a VFO tracks the
// bit clock while a 16-bit window over the raw bits is matched against
// a sync pattern. Once sync is found, the clock/data interleave is
// split and data bits are packed into bytes.
//
// Like VFO, a Separator is strictly sequential and must not be shared
// between goroutines.
type Separator struct {
	vfo *VFO

	pattern uint16
	mask    uint16

	window     uint16 // raw-bit shift window for sync matching
	byteReg    byte   // data-bit assembler
	bitCounter int
	clockBit   bool
	syncFound  bool

	data     []byte
	maxBytes int
}

// NewSeparator builds a Separator over a fresh VFO. The sync pattern
// defaults to the encoding's standard mark (0x4489 for MFM) with a
// full 16-bit mask.
func NewSeparator(alg Algorithm, encoding flux.Encoding, sampleRate float64) (*Separator, error) {
	v, err := New(alg, encoding, sampleRate)
	if err != nil {
		return nil, err
	}
	return &Separator{
		vfo:      v,
		pattern:  encoding.SyncPattern(),
		mask:     0xFFFF,
		maxBytes: defaultMaxBytes,
	}, nil
}

// SetSync replaces the sync pattern and mask. Only window bits under
// the mask participate in matching.
func (s *Separator) SetSync(pattern, mask uint16) {
	s.pattern = pattern
	s.mask = mask
}

// SetMaxBytes bounds the output buffer. Bytes decoded past the bound
// are dropped.
func (s *Separator) SetMaxBytes(n int) {
	if n > 0 {
		s.maxBytes = n
	}
}

// VFO exposes the clock-recovery loop, for statistics or gain tuning.
func (s *Separator) VFO() *VFO { return s.vfo }

// SyncFound reports whether the sync pattern has been seen since the
// last Reset.
func (s *Separator) SyncFound() bool { return s.syncFound }

// Bytes returns the assembled data bytes. The slice is owned by the
// Separator and valid until the next Process call or Reset.
func (s *Separator) Bytes() []byte { return s.data }

// Reset clears framing state, the output buffer, and the underlying
// VFO. The configured sync pattern is kept.
func (s *Separator) Reset() {
	s.vfo.Reset()
	s.window = 0
	s.byteReg = 0
	s.bitCounter = 0
	s.clockBit = false
	s.syncFound = false
	s.data = s.data[:0]
}

// ProcessIntervals consumes pulse intervals in sample ticks and
// returns the number of data bytes assembled by this call.
// Non-positive intervals are skipped.
func (s *Separator) ProcessIntervals(intervals []float64) int {
	decoded := 0
	for _, interval := range intervals {
		if interval <= 0 {
			continue
		}
		decoded += s.pulse(interval)
	}
	return decoded
}

// Process consumes raw pulse timestamps, decoding the interval between
// each successive pair. Subtraction wraps at 32 bits.
func (s *Separator) Process(times []uint32) (int, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("vfo: need at least 2 flux timestamps, got %d", len(times))
	}
	decoded := 0
	for i := 1; i < len(times); i++ {
		interval := float64(times[i] - times[i-1])
		if interval <= 0 {
			continue
		}
		decoded += s.pulse(interval)
	}
	return decoded, nil
}

// pulse handles one interval: quantise against the cell estimate as it
// stood before this pulse, let the VFO track, then run sync matching
// and byte assembly on the decoded bits.
func (s *Separator) pulse(interval float64) int {
	cells := quantize(interval / s.vfo.cell)

	s.vfo.alg.process(s.vfo, interval)

	for i := 0; i < cells-1; i++ {
		s.window <<= 1
	}
	s.window = s.window<<1 | 1

	if s.window&s.mask == s.pattern {
		s.syncFound = true
		s.bitCounter = 0
		s.byteReg = 0
		s.clockBit = false
		return 0
	}

	if !s.syncFound {
		return 0
	}

	decoded := 0
	for i := 0; i < cells; i++ {
		var bit byte
		if i == cells-1 {
			bit = 1
		}

		// Alternate clock and data positions. The bit after a
		// sync mark is a clock bit, so clockBit goes true on
		// the first toggle.
		s.clockBit = !s.clockBit
		if s.clockBit {
			continue
		}

		s.byteReg = s.byteReg<<1 | bit
		s.bitCounter++
		if s.bitCounter >= 8 {
			if len(s.data) < s.maxBytes {
				s.data = append(s.data, s.byteReg)
				decoded++
			}
			s.bitCounter = 0
			s.byteReg = 0
		}
	}
	return decoded
}
