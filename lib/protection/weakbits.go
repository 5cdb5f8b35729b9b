// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import "fmt"

// DefaultWeakBitThreshold is the disagreement ratio above which a bit
// counts as weak. At 0.15, a bit must differ on at least one of five
// revolutions, or one of two.
const DefaultWeakBitThreshold = 0.15

// DetectWeakBits compares aligned revolution reads bit by bit and
// masks the positions whose value is unstable between reads. A bit is
// weak when its minority value appears on at least threshold of the
// revolutions. Returns the mask, sized like one revolution, and the
// number of weak bits.
//
// The reads must already be aligned and equally sized; trimming to a
// common length is the caller's job.
func DetectWeakBits(revs [][]byte, threshold float64) ([]byte, int, error) {
	if len(revs) < 2 {
		return nil, 0, fmt.Errorf("protection: weak bit detection needs at least 2 revolutions, got %d", len(revs))
	}
	if threshold <= 0 || threshold > 1 {
		return nil, 0, fmt.Errorf("protection: weak bit threshold %v outside (0, 1]", threshold)
	}

	size := len(revs[0])
	if size == 0 {
		return nil, 0, fmt.Errorf("protection: revolution 0 is empty")
	}
	for i, rev := range revs {
		if len(rev) != size {
			return nil, 0, fmt.Errorf("protection: revolution %d is %d bytes, want %d",
				i, len(rev), size)
		}
	}

	mask := make([]byte, size)
	count := 0
	n := len(revs)
	for i := 0; i < size; i++ {
		for bit := 0; bit < 8; bit++ {
			ones := 0
			for _, rev := range revs {
				if rev[i]&(0x80>>bit) != 0 {
					ones++
				}
			}
			minority := min(ones, n-ones)
			if float64(minority)/float64(n) >= threshold {
				mask[i] |= 0x80 >> bit
				count++
			}
		}
	}
	return mask, count, nil
}

// Rand is a small deterministic byte source for weak bit
// randomization on write. Generator quality is beside the point: the
// mask records where the medium itself was unstable, the written bits
// only need to vary from pass to pass.
type Rand struct {
	state uint32
}

// NewRand seeds the generator. A zero seed is replaced, since the
// xorshift state must never be zero.
func NewRand(seed uint32) *Rand {
	if seed == 0 {
		seed = 0x1D872B41
	}
	return &Rand{state: seed}
}

// Byte advances the generator one step.
func (r *Rand) Byte() byte {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return byte(r.state)
}

// ApplyWeakMask rewrites the masked bits of data in place with fresh
// random values, leaving stable bits untouched. data and mask are
// walked in lockstep up to the shorter length; the generator is only
// advanced for bytes with mask bits set, so a fixed seed reproduces
// the same write. Returns the number of bytes altered. A nil rng gets
// a default seed.
func ApplyWeakMask(data, mask []byte, rng *Rand) int {
	if rng == nil {
		rng = NewRand(0)
	}
	changed := 0
	n := min(len(data), len(mask))
	for i := 0; i < n; i++ {
		if mask[i] == 0 {
			continue
		}
		data[i] = data[i]&^mask[i] | rng.Byte()&mask[i]
		changed++
	}
	return changed
}
