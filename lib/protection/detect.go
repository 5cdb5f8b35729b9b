// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"github.com/bureau-foundation/fluxkit/lib/platform"
)

// Detector recognizes a platform's protection schemes from one track
// read. Implementations are registered on an Analyzer; the highest
// confidence answer names the map's scheme.
type Detector interface {
	// Name identifies the detector in logs.
	Name() string

	// Detect names the scheme found on the track with a 0-100
	// confidence, or reports false. Each detector gates on its
	// platform's track shape, so a full set can run over any data.
	Detect(cylinder, head int, data []byte) (scheme string, confidence int, ok bool)
}

// DefaultDetectors is the full set of platform detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		AmigaDetector{},
		AtariDetector{},
		C64Detector{},
		AppleDetector{},
	}
}

// AmigaDetector recognizes Amiga protections by classifying the track
// against the Amiga DD profile: protection sync marks, long tracks,
// and irregular sector layouts.
type AmigaDetector struct{}

// Name implements Detector.
func (AmigaDetector) Name() string { return "amiga" }

// Detect implements Detector. Tracks without at least two occurrences
// of a known sync mark pass through silently, so GCR platforms never
// reach the MFM classifier heuristics.
func (AmigaDetector) Detect(cylinder, head int, data []byte) (string, int, bool) {
	profile, ok := platform.Builtin().ForPlatform(platform.PlatformAmiga)
	if !ok {
		return "", 0, false
	}
	cls, err := platform.Classify(data, &profile)
	if err != nil || cls.Scheme == "" {
		return "", 0, false
	}
	if cls.Syncs.PrimaryCount < 2 {
		return "", 0, false
	}
	return cls.Scheme, int(cls.Confidence * 100), true
}

const (
	c64SyncMinBits  = 10
	c64SyncLongBits = 40
	c64SyncRunCap   = 1000
)

// gcrValid marks the sixteen legal 5-bit GCR groups of the 1541.
var gcrValid = [32]bool{
	0x09: true, 0x0A: true, 0x0B: true, 0x0D: true,
	0x0E: true, 0x0F: true, 0x12: true, 0x13: true,
	0x15: true, 0x16: true, 0x17: true, 0x19: true,
	0x1A: true, 0x1B: true, 0x1D: true, 0x1E: true,
}

// C64Detector recognizes 1541 protections from the GCR bitstream:
// fat tracks by zone-relative length, RapidLok by its illegal GCR
// groups, V-MAX! by its long sync floods, and Vorpal by its spread of
// distinct sync lengths on the loader track.
type C64Detector struct{}

// Name implements Detector.
func (C64Detector) Name() string { return "c64" }

// Detect implements Detector.
func (C64Detector) Detect(cylinder, head int, data []byte) (string, int, bool) {
	if len(data) < 125 {
		return "", 0, false
	}

	// Tracks far outside the speed zone's window are not 1541 GCR.
	trackNum := cylinder + 1
	bits := len(data) * 8
	zone := platform.C64ZoneBits(trackNum)
	if bits < zone/2 || bits > zone*2 {
		return "", 0, false
	}

	bestScheme, bestConfidence := "", 0
	consider := func(scheme string, confidence int) {
		if confidence > bestConfidence {
			bestScheme, bestConfidence = scheme, confidence
		}
	}

	if conf, fat := platform.C64FatTrack(bits, trackNum); fat {
		consider("Fat Track Protection", int(conf*100))
	}

	// RapidLok floods tracks with GCR groups no stock drive writes.
	// The census walks a fixed 5-bit phase; sync runs (all ones) are
	// excluded since they are framing, not data.
	switch illegal := c64IllegalGCR(data); {
	case illegal > 200:
		consider("RapidLok", 70)
	case illegal > 50:
		consider("RapidLok", 45)
	}

	syncCount, longRuns, _, uniqueLengths, sigMatches := c64SyncRuns(data)

	// V-MAX! writes a handful of overlong sync marks, each followed
	// by its 0x52/0x55 header bytes.
	if longRuns >= 5 && longRuns <= 15 {
		confidence := 25
		if sigMatches >= 3 {
			confidence += 25
		}
		percent := bits * 100 / zone
		if percent > 110 || percent < 90 {
			confidence += 10
		}
		if confidence >= 50 {
			consider("V-MAX!", confidence)
		}
	}

	// Vorpal varies its sync lengths between sectors of the track 18
	// loader.
	if uniqueLengths >= 3 && uniqueLengths <= 8 {
		confidence := 30
		if trackNum == 18 && syncCount >= 20 {
			confidence += 15
		}
		if confidence >= 40 {
			consider("Vorpal", confidence)
		}
	}

	if bestConfidence == 0 {
		return "", 0, false
	}
	return bestScheme, bestConfidence, true
}

func readBit(data []byte, pos int) bool {
	return data[pos>>3]&(0x80>>(pos&7)) != 0
}

func c64IllegalGCR(data []byte) int {
	illegal := 0
	bits := len(data) * 8
	for pos := 0; pos+5 <= bits; pos += 5 {
		group := 0
		for b := 0; b < 5; b++ {
			group <<= 1
			if readBit(data, pos+b) {
				group |= 1
			}
		}
		if group == 0x1F {
			continue
		}
		if !gcrValid[group] {
			illegal++
		}
	}
	return illegal
}

// c64SyncRuns walks the sync runs of a GCR track: runs of set bits at
// least c64SyncMinBits long. sigMatches counts runs of 30 bits or
// more whose 40th-bit position is followed by a V-MAX! header byte.
func c64SyncRuns(data []byte) (syncCount, longRuns, maxRun, uniqueLengths, sigMatches int) {
	bits := len(data) * 8
	lengths := make(map[int]struct{})

	for pos := 0; pos < bits; {
		if !readBit(data, pos) {
			pos++
			continue
		}
		run := 0
		for pos+run < bits && readBit(data, pos+run) && run < c64SyncRunCap {
			run++
		}

		if run >= c64SyncMinBits {
			syncCount++
			maxRun = max(maxRun, run)
			if run >= c64SyncLongBits {
				longRuns++
			}
			lengths[run] = struct{}{}
		}
		if run >= 30 && pos+56 <= bits {
			header := 0
			for b := 0; b < 8; b++ {
				header <<= 1
				if readBit(data, pos+40+b) {
					header |= 1
				}
			}
			if header == 0x52 || header == 0x55 {
				sigMatches++
			}
		}

		pos += run
	}
	uniqueLengths = len(lengths)
	return syncCount, longRuns, maxRun, uniqueLengths, sigMatches
}

const (
	appleTrackBytes      = 6656
	appleNibbleTolerance = 32
)

// AppleDetector recognizes nibble count protection: loaders that
// verify the exact byte count of a track, which any write that
// normalizes track length defeats.
type AppleDetector struct{}

// Name implements Detector.
func (AppleDetector) Name() string { return "apple" }

// Detect implements Detector. The track must carry Apple address or
// data prologues; the scheme is graded by how far the byte count
// strays from the nominal 6656.
func (AppleDetector) Detect(cylinder, head int, data []byte) (string, int, bool) {
	if len(data) < 100 {
		return "", 0, false
	}

	prologues := 0
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0xD5 && data[i+1] == 0xAA &&
			(data[i+2] == 0x96 || data[i+2] == 0xAD) {
			prologues++
		}
	}
	if prologues < 4 {
		return "", 0, false
	}

	deviation := len(data) - appleTrackBytes
	confidence := 0
	switch {
	case abs(deviation) > appleNibbleTolerance*4:
		confidence = 90
	case abs(deviation) > appleNibbleTolerance*2:
		confidence = 70
	case abs(deviation) > appleNibbleTolerance:
		confidence = 50
	default:
		return "", 0, false
	}

	// Count-check loaders carry LDA/CMP immediate pairs.
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0xA9 && data[i+2] == 0xC9 {
			confidence = min(confidence+10, 100)
			break
		}
	}

	return "Nibble Count Protection", confidence, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// atariCopylockCylinder is where Copylock ST writes its key track.
const atariCopylockCylinder = 79

// AtariDetector recognizes Copylock ST by the sync-adjacent words a
// stock FDC never produces: the 0x8912 and 0x8914 marks opening its
// fast and slow sectors, and the 0x448x/0x449x near-syncs padding the
// key track.
type AtariDetector struct{}

// Name implements Detector.
func (AtariDetector) Name() string { return "atari" }

// Detect implements Detector.
func (AtariDetector) Detect(cylinder, head int, data []byte) (string, int, bool) {
	if len(data) < 125 {
		return "", 0, false
	}

	nearSyncs, sectorMarks := 0, 0
	for i := 0; i+1 < len(data); i++ {
		w := uint16(data[i])<<8 | uint16(data[i+1])
		switch {
		case w == 0x4489:
			// The standard sync is not evidence.
		case w == 0x8912 || w == 0x8914:
			sectorMarks++
		case w&0xFFF0 == 0x4480 || w&0xFFF0 == 0x4490:
			nearSyncs++
		}
	}
	if sectorMarks < 2 {
		return "", 0, false
	}

	confidence := 20
	switch {
	case nearSyncs > 10:
		confidence += 40
	case nearSyncs > 5:
		confidence += 25
	}
	if cylinder == atariCopylockCylinder {
		confidence += 25
	}
	if confidence < 50 {
		return "", 0, false
	}
	return "Copylock ST", confidence, true
}
