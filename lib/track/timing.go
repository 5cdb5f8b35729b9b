// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import "fmt"

const (
	// TrackTime300RPMUS is one revolution at 300 RPM in microseconds.
	TrackTime300RPMUS = 200000

	// LongTrackFactor is the track-time overrun beyond which a track
	// is considered deliberately overlong.
	LongTrackFactor = 1.05

	// BitTimeDDUS and BitTimeHDUS are the microseconds per data bit
	// at the double- and high-density MFM rates.
	BitTimeDDUS = 4.0
	BitTimeHDUS = 2.0

	maxTimedSectors = 64
)

// SectorTiming is the reconstructed timing of one sector, measured
// from the start of the track read.
type SectorTiming struct {
	RelTimeUS    float64
	HeaderTimeUS float64
	DataTimeUS   float64

	// GapAfterUS is the slack between this sector's expected end and
	// the next sync mark. Zero when the next sync arrives early or
	// there is no next sector.
	GapAfterUS float64

	Cyl      uint8
	Head     uint8
	Sector   uint8
	SizeCode uint8

	// Valid reports whether the ID field fit inside the buffer.
	Valid bool
}

// Timing is the sector-level timing map of one track.
type Timing struct {
	Sectors []SectorTiming

	TrackTimeUS    float64
	RPM            float64
	IndexToFirstUS float64
	FirstSeen      uint8

	// Consistent is false when successive sector gaps differ by more
	// than a factor of two.
	Consistent bool

	Protection string
	Protected  bool
}

// AnalyzeTiming reconstructs sector timing from decoded track bytes.
// Sync marks anchor each sector; field durations are derived from the
// ID field's size code at bitTimeUS microseconds per data bit
// (BitTimeDDUS for double density, BitTimeHDUS for high density).
func AnalyzeTiming(data []byte, sync uint16, bitTimeUS float64) (*Timing, error) {
	if len(data) < 100 {
		return nil, fmt.Errorf("track: %d bytes is too short for timing analysis", len(data))
	}
	if bitTimeUS <= 0 {
		return nil, fmt.Errorf("track: bit time %v must be positive", bitTimeUS)
	}

	t := &Timing{Consistent: true}

	syncs := FindSyncs(data, sync)
	for i, s := range syncs {
		if len(t.Sectors) >= maxTimedSectors {
			break
		}

		sec := SectorTiming{
			RelTimeUS:    float64(s.Offset) * 8 * bitTimeUS,
			HeaderTimeUS: 6 * 8 * bitTimeUS,
		}

		// ID field follows the two sync bytes: C, H, R, N.
		hdr := s.Offset + 2
		if hdr+4 < len(data) {
			sec.Cyl = data[hdr]
			sec.Head = data[hdr+1]
			sec.Sector = data[hdr+2]
			sec.SizeCode = data[hdr+3]
			sec.Valid = true
		}

		sec.DataTimeUS = float64(sectorBytes(sec.SizeCode)) * 8 * bitTimeUS

		if i+1 < len(syncs) {
			next := float64(syncs[i+1].Offset) * 8 * bitTimeUS
			expectedEnd := sec.RelTimeUS + sec.HeaderTimeUS + sec.DataTimeUS
			if next > expectedEnd {
				sec.GapAfterUS = next - expectedEnd
			}
		}

		t.Sectors = append(t.Sectors, sec)
	}

	t.TrackTimeUS = float64(len(data)) * 8 * bitTimeUS
	t.RPM = 60e6 / t.TrackTimeUS

	if len(t.Sectors) > 0 {
		t.IndexToFirstUS = t.Sectors[0].RelTimeUS
		t.FirstSeen = t.Sectors[0].Sector
	}

	for i := 1; i < len(t.Sectors); i++ {
		if t.Sectors[i].GapAfterUS > 0 {
			ratio := t.Sectors[i].GapAfterUS / t.Sectors[i-1].GapAfterUS
			if ratio < 0.5 || ratio > 2.0 {
				t.Consistent = false
			}
		}
	}

	t.Protection, t.Protected = DetectTimingProtection(t)
	return t, nil
}

// sectorBytes converts an IBM size code to a byte count. Codes above
// 7 would overflow the shift; real media stops at 16384-byte sectors.
func sectorBytes(sizeCode uint8) int {
	if sizeCode > 7 {
		sizeCode = 7
	}
	return 128 << sizeCode
}

// DetectTimingProtection classifies a timing map against the
// signatures of common protection schemes. The checks run in a fixed
// order so that the strongest signal names the scheme.
func DetectTimingProtection(t *Timing) (string, bool) {
	if t == nil || len(t.Sectors) == 0 {
		return "", false
	}

	firstSize := t.Sectors[0].SizeCode
	for _, sec := range t.Sectors[1:] {
		if sec.SizeCode != firstSize {
			return "Variable Sectors", true
		}
	}

	outOfOrder := false
	for i := 1; i < len(t.Sectors); i++ {
		diff := int(t.Sectors[i].Sector) - int(t.Sectors[i-1].Sector)
		if diff < 0 || diff > 2 {
			outOfOrder = true
			break
		}
	}

	// A zero gap means unmeasured (no following sync), not short.
	unusualGaps := false
	for _, sec := range t.Sectors {
		if sec.GapAfterUS == 0 {
			continue
		}
		if sec.GapAfterUS > 10000 || sec.GapAfterUS < 100 {
			unusualGaps = true
			break
		}
	}

	nonSequential := false
	expected := 1
	for _, sec := range t.Sectors {
		id := int(sec.Sector)
		if id != expected && id != expected+len(t.Sectors) {
			nonSequential = true
		}
		expected++
	}

	longTrack := t.TrackTimeUS > TrackTime300RPMUS*LongTrackFactor

	switch {
	case unusualGaps && outOfOrder:
		return "Timing Protection", true
	case longTrack:
		return "Long Track", true
	case nonSequential:
		return "Non-Sequential IDs", true
	}
	return "", false
}
