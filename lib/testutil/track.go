// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test scaffolding: synthetic track
// builders used across the track, protection, and platform test
// suites, and a channel-receive helper for tests that drive
// goroutines. Production code must not import this package.
package testutil

import "encoding/binary"

// SectorID is the 4-byte C/H/R/N address written after each sync mark
// in a synthetic track.
type SectorID struct {
	Cylinder uint8
	Head     uint8
	Number   uint8
	SizeCode uint8
}

// SequentialSectors returns n sector IDs numbered 1..n on cylinder 0,
// head 0, all with the given size code.
func SequentialSectors(n int, sizeCode uint8) []SectorID {
	sectors := make([]SectorID, n)
	for i := range sectors {
		sectors[i] = SectorID{Number: uint8(i + 1), SizeCode: sizeCode}
	}
	return sectors
}

// TrackSpec describes a synthetic decoded track buffer. Sector starts
// are spaced evenly across the non-zero portion of the buffer; each
// sector is a 2-byte big-endian sync word followed by its 4-byte
// C/H/R/N header. The space between sectors is filled with GapByte.
type TrackSpec struct {
	// Length is the total buffer size in bytes.
	Length int

	// Pattern is the sync word, e.g. 0x4489 for MFM.
	Pattern uint16

	// Sectors are laid out in order, evenly spaced.
	Sectors []SectorID

	// GapByte fills the space between sectors. Zero means 0x4E, the
	// classic IBM format gap filler; use GapByte 0x01 or similar if a
	// test needs a non-standard gap.
	GapByte byte

	// TailZeros zeroes this many bytes at the end of the buffer,
	// emulating the unwritten splice area after the last sector.
	TailZeros int
}

// Track builds the buffer described by spec. Panics on impossible
// specs (sector data exceeding the buffer); tests should fail loudly
// at construction, not produce truncated fixtures.
func Track(spec TrackSpec) []byte {
	gap := spec.GapByte
	if gap == 0 {
		gap = 0x4E
	}

	buffer := make([]byte, spec.Length)
	usable := spec.Length - spec.TailZeros
	if usable < 0 {
		panic("testutil.Track: TailZeros exceeds Length")
	}
	for i := 0; i < usable; i++ {
		buffer[i] = gap
	}

	if len(spec.Sectors) > 0 {
		stride := usable / len(spec.Sectors)
		if stride < 6 {
			panic("testutil.Track: sectors do not fit the buffer")
		}
		for i, sector := range spec.Sectors {
			offset := i * stride
			binary.BigEndian.PutUint16(buffer[offset:], spec.Pattern)
			buffer[offset+2] = sector.Cylinder
			buffer[offset+3] = sector.Head
			buffer[offset+4] = sector.Number
			buffer[offset+5] = sector.SizeCode
		}
	}

	return buffer
}

// FlipBit returns a copy of data with the bit at position bit (MSB
// first within each byte) inverted. Used to fabricate unstable reads
// for weak-bit detection tests.
func FlipBit(data []byte, bit int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	out[bit/8] ^= 1 << (7 - bit%8)
	return out
}
