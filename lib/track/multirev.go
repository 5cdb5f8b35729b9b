// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import (
	"fmt"
	"math"
)

// MaxRevolutions caps how many revolutions Split carves from one
// capture buffer.
const MaxRevolutions = 16

// Revolution is one carved revolution of a raw track read.
type Revolution struct {
	// Data is this revolution's bytes, trimmed of trailing zero
	// runs. Owned by the Revolution.
	Data []byte

	// Start is the byte offset of the carve point in the source
	// buffer.
	Start int

	// RPM is the rotation speed implied by the data length at the
	// standard 250 kbit/s double-density rate.
	RPM float64

	// Offset is the signed byte distance from revolution 0's first
	// sync mark to this revolution's, set by Align. Alignment is
	// metadata; Data is never shifted.
	Offset int
}

// MultiRev holds the revolutions of one multi-rotation track read.
type MultiRev struct {
	Revs []Revolution

	// RPMAverage and RPMJitter summarise drive speed across the
	// capture; jitter is the population standard deviation.
	RPMAverage float64
	RPMJitter  float64
}

// Split carves a capture buffer into revolutions of expectedRevLen
// bytes, at most MaxRevolutions. Each revolution's trailing all-zero
// 16-byte runs are trimmed, since the splice area after the last
// written byte reads back as zeros. Revolution data is copied out of
// the buffer.
func Split(buffer []byte, expectedRevLen int) (*MultiRev, error) {
	if expectedRevLen <= 0 {
		return nil, fmt.Errorf("track: expected revolution length %d must be positive", expectedRevLen)
	}
	if len(buffer) < expectedRevLen {
		return nil, fmt.Errorf("track: buffer of %d bytes shorter than one revolution (%d)",
			len(buffer), expectedRevLen)
	}

	m := &MultiRev{}
	pos := 0
	for pos < len(buffer) && len(m.Revs) < MaxRevolutions {
		revEnd := min(pos+expectedRevLen, len(buffer))

		actualLen := revEnd - pos
		for actualLen > 100 && allZero(buffer[pos+actualLen-16:pos+actualLen]) {
			actualLen -= 16
		}

		data := make([]byte, actualLen)
		copy(data, buffer[pos:pos+actualLen])

		// 62.5 bytes per millisecond at 250 kbit/s.
		timeMS := float64(actualLen) / 62.5
		m.Revs = append(m.Revs, Revolution{
			Data:  data,
			Start: pos,
			RPM:   60000 / timeMS,
		})

		pos = revEnd
	}

	m.computeRPMStats()
	return m, nil
}

// FromRevolutions builds a MultiRev from revolutions that were
// already carved, such as the per-revolution reads of a flux capture.
// Revolution data is copied; Start offsets are assigned as if the
// revolutions were concatenated.
func FromRevolutions(revs [][]byte) (*MultiRev, error) {
	if len(revs) == 0 {
		return nil, fmt.Errorf("track: no revolutions")
	}
	if len(revs) > MaxRevolutions {
		return nil, fmt.Errorf("track: %d revolutions exceeds the maximum of %d",
			len(revs), MaxRevolutions)
	}

	m := &MultiRev{}
	pos := 0
	for i, rev := range revs {
		if len(rev) == 0 {
			return nil, fmt.Errorf("track: revolution %d is empty", i)
		}
		data := make([]byte, len(rev))
		copy(data, rev)

		timeMS := float64(len(rev)) / 62.5
		m.Revs = append(m.Revs, Revolution{
			Data:  data,
			Start: pos,
			RPM:   60000 / timeMS,
		})
		pos += len(rev)
	}

	m.computeRPMStats()
	return m, nil
}

func (m *MultiRev) computeRPMStats() {
	sum := 0.0
	for _, rev := range m.Revs {
		sum += rev.RPM
	}
	m.RPMAverage = sum / float64(len(m.Revs))

	variance := 0.0
	for _, rev := range m.Revs {
		diff := rev.RPM - m.RPMAverage
		variance += diff * diff
	}
	m.RPMJitter = math.Sqrt(variance / float64(len(m.Revs)))
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Align records each revolution's byte offset relative to revolution
// 0, using the first occurrence of the sync pattern in each as the
// anchor. Revolutions without a sync, and captures with fewer than
// two revolutions, are left at offset 0.
func (m *MultiRev) Align(pattern uint16) {
	if len(m.Revs) < 2 {
		return
	}

	ref := FindSyncs(m.Revs[0].Data, pattern)
	if len(ref) == 0 {
		return
	}

	for i := 1; i < len(m.Revs); i++ {
		syncs := FindSyncs(m.Revs[i].Data, pattern)
		if len(syncs) > 0 {
			m.Revs[i].Offset = syncs[0].Offset - ref[0].Offset
		}
	}
}

// Merge votes the revolutions into one track image, byte by byte. The
// output is revolution 0's length; at each position the most common
// byte wins, and on a tie revolution 0's byte stands. Revolutions
// shorter than the output simply do not vote past their end.
func (m *MultiRev) Merge() []byte {
	if len(m.Revs) == 0 {
		return nil
	}

	merged := make([]byte, len(m.Revs[0].Data))
	copy(merged, m.Revs[0].Data)
	if len(m.Revs) == 1 {
		return merged
	}

	for i := range merged {
		var votes [256]int
		for _, rev := range m.Revs {
			if i < len(rev.Data) {
				votes[rev.Data[i]]++
			}
		}

		best := merged[i]
		bestCount := votes[best]
		for v, count := range votes {
			if count > bestCount {
				best = byte(v)
				bestCount = count
			}
		}
		merged[i] = best
	}
	return merged
}
