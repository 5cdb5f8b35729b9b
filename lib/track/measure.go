// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import (
	"fmt"
)

// ReferenceTrackBytes is the decoded length of a standard MFM
// double-density track at 300 RPM, the baseline for density ratios.
const ReferenceTrackBytes = 12500

// Track lengths outside this range indicate a failed read or a buffer
// that never held track data.
const (
	MinTrackBytes = 1000
	MaxTrackBytes = 50000
)

// Measurement is the result of locating real track data inside a raw
// read buffer.
type Measurement struct {
	// LengthBytes is the even-rounded span of non-zero data, halved
	// when the buffer appears to hold two revolutions.
	LengthBytes int

	// LengthBits is LengthBytes in bits.
	LengthBits int

	// FirstData and LastData delimit the non-zero span in the
	// original buffer; LastData points one past the final word.
	FirstData int
	LastData  int

	// DensityRatio relates the measured length to a standard MFM DD
	// revolution: 1.0 nominal, above 1.0 for long tracks.
	DensityRatio float64

	// Valid reports whether LengthBytes is plausible for a track.
	Valid bool
}

// Measure finds the data span in a raw track read. Capture buffers are
// oversized and zero-filled, so the span between the first non-zero
// byte and the last non-zero 16-bit word is the recorded data. A
// buffer longer than 20000 bytes whose data reaches past the midpoint
// is assumed to hold two revolutions and the length is halved.
func Measure(data []byte) (Measurement, error) {
	if len(data) < 4 {
		return Measurement{}, fmt.Errorf("track: buffer of %d bytes is too short to measure", len(data))
	}

	// Last non-zero word, scanning backward. A word is checked as a
	// pair of bytes; endianness does not matter for a zero test.
	last := len(data)
	for w := len(data) / 2; w > 0; w-- {
		if data[2*w-2] != 0 || data[2*w-1] != 0 {
			last = 2 * w
			break
		}
	}

	first := 0
	for i, b := range data {
		if b != 0 {
			first = i
			break
		}
	}

	length := last - first
	if len(data) > 20000 && last > len(data)/2 {
		length /= 2
	}
	length &^= 1

	m := Measurement{
		LengthBytes: length,
		LengthBits:  length * 8,
		FirstData:   first,
		LastData:    last,
		Valid:       length > MinTrackBytes && length < MaxTrackBytes,
	}
	if length > 0 {
		m.DensityRatio = float64(length) / ReferenceTrackBytes
	}
	return m, nil
}
