// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

// maxSyncPositions bounds the sync scan on pathological buffers; a
// buffer that is nothing but sync words is noise, not a track.
const maxSyncPositions = 4096

// SyncPos is one located sync mark.
type SyncPos struct {
	// Offset is the byte position of the mark (of the byte holding
	// its first bit, for shifted matches).
	Offset int

	// Pattern is the 16-bit word searched for.
	Pattern uint16

	// Shift is the bit misalignment of the match: 0 for a
	// byte-aligned mark, 1..7 when the mark starts mid-byte.
	Shift int

	// Confidence is 100 for an aligned match, dropping 10 per shift
	// bit. Misaligned marks usually mean the decode lost framing.
	Confidence int
}

// FindSyncs scans decoded track data for a big-endian 16-bit sync
// word. Byte-aligned matches are preferred at each position; otherwise
// the seven sub-byte alignments are tried, reading one bit run across
// three bytes. Results are ordered by offset.
func FindSyncs(data []byte, pattern uint16) []SyncPos {
	if len(data) < 2 {
		return nil
	}

	hi := byte(pattern >> 8)
	lo := byte(pattern)

	var found []SyncPos
	for i := 0; i+1 < len(data) && len(found) < maxSyncPositions; i++ {
		if data[i] == hi && data[i+1] == lo {
			found = append(found, SyncPos{
				Offset:     i,
				Pattern:    pattern,
				Confidence: 100,
			})
			continue
		}
		if i+2 >= len(data) {
			continue
		}
		word := uint16(data[i])<<8 | uint16(data[i+1])
		for shift := 1; shift < 8; shift++ {
			shifted := word<<shift | uint16(data[i+2]>>(8-shift))
			if shifted == pattern {
				found = append(found, SyncPos{
					Offset:     i,
					Pattern:    pattern,
					Shift:      shift,
					Confidence: 100 - shift*10,
				})
				break
			}
		}
	}
	return found
}
