// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/track"
)

// TrackType is the structural verdict on one track read.
type TrackType uint8

const (
	TrackUnknown TrackType = iota
	TrackStandard
	TrackProtected
	TrackLong
	TrackNoSync
)

// String returns the display name of the track type.
func (t TrackType) String() string {
	switch t {
	case TrackStandard:
		return "Standard"
	case TrackProtected:
		return "Protected"
	case TrackLong:
		return "Long Track"
	case TrackNoSync:
		return "No Sync"
	default:
		return "Unknown"
	}
}

const (
	// syncSkipBytes is the minimum spacing between sync marks; after
	// a match the scan resumes this far along so sector payloads
	// cannot flood the result.
	syncSkipBytes = 0x100

	// maxSyncHits bounds the scan on pathological buffers.
	maxSyncHits = 4096

	// maxLengthClusters bounds the span-length cluster table; a
	// track with more distinct sector sizes than this is noise.
	maxLengthClusters = 16

	// defaultTolerance groups sync-to-sync spans when no profile
	// narrows it.
	defaultTolerance = 32

	// PreGapBytes is how far before the post-gap sync mark the
	// write splice lands, clear of the preceding sector's tail.
	PreGapBytes = 10

	// defaultMaxBreakpoints is the most run boundaries a breakpoint
	// protection uses; more transitions than that is ordinary data.
	defaultMaxBreakpoints = 5

	// defaultLongTrackBytes is the Amiga long-track threshold, used
	// when no profile narrows it.
	defaultLongTrackBytes = 13056
)

// allSyncs is every known platform mark, searched when no profile
// restricts the scan. The common MFM mark sits first so it wins
// primary-pattern ties.
var allSyncs = []SyncWord{
	0x4489, 0x9521, 0xA245, 0xA89A, 0x448A, 0xF8BC,
	0xA1A1, 0x4E4E, 0x52FF,
}

// SyncHit is one sync mark located by the scan.
type SyncHit struct {
	// Offset is the byte holding the first bit of the mark; Bit is
	// the bit position within that byte, 0 for aligned marks.
	Offset int
	Bit    int

	Pattern uint16

	// Confidence is 1.0 for a byte-aligned match, 0.8 for a
	// bit-shifted one. A shifted mark usually means the write that
	// produced it slipped the bit cell grid on purpose.
	Confidence float64
}

// SyncScan summarizes a multi-pattern sync search.
type SyncScan struct {
	Hits []SyncHit

	// Primary is the most frequent pattern and its hit count.
	Primary      uint16
	PrimaryCount int

	// BitShifted reports whether any mark sat off the byte grid.
	BitShifted bool
}

// ScanSyncs searches data for any of the given sync marks at every
// bit alignment. After each hit the scan skips ahead by the minimum
// sector spacing, so at most one mark per sector is reported.
func ScanSyncs(data []byte, patterns []SyncWord) SyncScan {
	var scan SyncScan
	if len(data) < 4 || len(patterns) == 0 {
		return scan
	}

	// A 32-bit window advances two bytes per step; the sixteen bit
	// offsets inside it tile the stream so every bit position is
	// tried exactly once.
	for w := 0; w+4 <= len(data) && len(scan.Hits) < maxSyncHits; {
		window := uint32(data[w])<<24 | uint32(data[w+1])<<16 |
			uint32(data[w+2])<<8 | uint32(data[w+3])

		hit := false
		for bit := 0; bit < 16 && !hit; bit++ {
			word := uint16(window >> (16 - bit))
			for _, p := range patterns {
				if word != uint16(p) {
					continue
				}
				h := SyncHit{
					Offset:     w + bit/8,
					Bit:        bit % 8,
					Pattern:    uint16(p),
					Confidence: 1.0,
				}
				if h.Bit != 0 {
					h.Confidence = 0.8
					scan.BitShifted = true
				}
				scan.Hits = append(scan.Hits, h)
				hit = true
				break
			}
		}

		if hit {
			w += syncSkipBytes
		} else {
			w += 2
		}
	}

	if len(scan.Hits) > 0 {
		counts := make(map[uint16]int, len(patterns))
		for _, h := range scan.Hits {
			counts[h.Pattern]++
		}
		for _, p := range patterns {
			if counts[uint16(p)] > scan.PrimaryCount {
				scan.Primary = uint16(p)
				scan.PrimaryCount = counts[uint16(p)]
			}
		}
	}
	return scan
}

// LengthCluster is one group of similar sync-to-sync span lengths.
type LengthCluster struct {
	// Length is the first span length seen in the group.
	Length int
	Count  int

	// Fraction is the group's share of all spans.
	Fraction float64
}

// ClusterLengths groups the spans between consecutive sync offsets,
// merging spans within tolerance of a group's first length.
func ClusterLengths(offsets []int, tolerance int) []LengthCluster {
	if len(offsets) < 2 {
		return nil
	}
	var clusters []LengthCluster
	for i := 0; i+1 < len(offsets); i++ {
		length := offsets[i+1] - offsets[i]
		found := false
		for j := range clusters {
			if abs(length-clusters[j].Length) <= tolerance {
				clusters[j].Count++
				found = true
				break
			}
		}
		if !found && len(clusters) < maxLengthClusters {
			clusters = append(clusters, LengthCluster{Length: length, Count: 1})
		}
	}
	spans := float64(len(offsets) - 1)
	for j := range clusters {
		clusters[j].Fraction = float64(clusters[j].Count) / spans
	}
	return clusters
}

// SectorLayout describes the sector structure inferred from sync
// spacing.
type SectorLayout struct {
	// Count is the number of sync marks found; on a standard track
	// every sector contributes one.
	Count int

	// Lengths are the distinct span lengths between consecutive
	// marks, grouped within tolerance.
	Lengths []LengthCluster

	// Nominal is the most common span length.
	Nominal int

	// Uniform means a single length group: every sector the same
	// size. Uniformity is the dominant group's share of all spans.
	Uniform    bool
	Uniformity float64
}

// AnalyzeSectors clusters the spans between sync offsets into a
// sector layout.
func AnalyzeSectors(offsets []int, tolerance int) SectorLayout {
	layout := SectorLayout{Count: len(offsets)}
	if len(offsets) < 2 {
		return layout
	}
	layout.Lengths = ClusterLengths(offsets, tolerance)
	maxCount := 0
	for _, c := range layout.Lengths {
		if c.Count > maxCount {
			maxCount = c.Count
			layout.Nominal = c.Length
		}
	}
	layout.Uniform = len(layout.Lengths) == 1
	layout.Uniformity = float64(maxCount) / float64(len(offsets)-1)
	return layout
}

// SizeCount is one sector size code and how often it appeared.
type SizeCount struct {
	SizeCode uint8
	Count    int
}

// ClusterSectorSizes counts the size codes across sector timings,
// most frequent first. More than one entry on a format that should
// be uniform is variable-sector evidence.
func ClusterSectorSizes(sectors []track.SectorTiming) []SizeCount {
	var counts []SizeCount
	for _, s := range sectors {
		found := false
		for i := range counts {
			if counts[i].SizeCode == s.SizeCode {
				counts[i].Count++
				found = true
				break
			}
		}
		if !found {
			counts = append(counts, SizeCount{SizeCode: s.SizeCode, Count: 1})
		}
	}
	slices.SortStableFunc(counts, func(a, b SizeCount) int {
		return b.Count - a.Count
	})
	return counts
}

// Gap locates the track gap: the span between sync marks whose
// length occurs least often. Index is the position in the sync list
// of the mark after the gap; a write splice belongs just before it.
type Gap struct {
	Index  int
	Length int
}

// GapAnalysis finds the track gap by span-length frequency. At least
// three sync marks are needed to tell the gap from the sectors.
func GapAnalysis(offsets []int, tolerance int) (Gap, bool) {
	if len(offsets) < 3 {
		return Gap{}, false
	}
	clusters := ClusterLengths(offsets, tolerance)
	if len(clusters) == 0 {
		return Gap{}, false
	}
	gapLen := clusters[0].Length
	minCount := clusters[0].Count
	for _, c := range clusters[1:] {
		if c.Count < minCount {
			minCount = c.Count
			gapLen = c.Length
		}
	}
	for i := 0; i+1 < len(offsets); i++ {
		if abs(offsets[i+1]-offsets[i]-gapLen) <= tolerance {
			return Gap{Index: i + 1, Length: offsets[i+1] - offsets[i]}, true
		}
	}
	return Gap{}, false
}

// WriteStart returns the buffer offset where a track write should
// splice: preGap bytes before the sync mark that follows the gap.
func WriteStart(offsets []int, gap Gap, preGap int) int {
	if gap.Index <= 0 || gap.Index >= len(offsets) {
		return 0
	}
	start := offsets[gap.Index]
	if start >= preGap {
		start -= preGap
	}
	return start
}

// DetectBreakpoints finds the boundaries between runs of identical
// bytes. A syncless track with only a handful of run boundaries is a
// deliberate pattern, not noise; more than maxBreakpoints boundaries
// reads as ordinary data. The last eight bytes are ignored, they sit
// under the write splice.
func DetectBreakpoints(data []byte, maxBreakpoints int) ([]int, bool) {
	if len(data) < 16 {
		return nil, false
	}
	limit := len(data) - 8
	var positions []int
	i := 0
	for i < limit {
		val := data[i]
		i++
		for i < limit && data[i] == val {
			i++
		}
		if i < limit {
			positions = append(positions, i)
			if len(positions) > maxBreakpoints {
				return positions, false
			}
		}
	}
	return positions, len(positions) > 0
}

// IsLongTrack reports whether a measured track length reaches the
// profile's long-track threshold.
func IsLongTrack(lengthBytes int, p *Profile) bool {
	if p == nil {
		return lengthBytes >= defaultLongTrackBytes
	}
	return lengthBytes >= p.LongTrackThreshold
}

// DetectPlatform guesses the machine family from the dominant sync
// mark, the sector count, and the track length. Atari ST disks with
// the standard layout are indistinguishable from IBM and report as
// IBM PC.
func DetectPlatform(primarySync uint16, sectors, lengthBytes int) Platform {
	switch primarySync {
	case 0x4489:
		switch {
		case sectors == 11 && lengthBytes >= 11000 && lengthBytes <= 14000:
			return PlatformAmiga
		case sectors == 22 && lengthBytes >= 22000 && lengthBytes <= 28000:
			return PlatformAmiga
		case sectors == 9 && lengthBytes >= 6000 && lengthBytes <= 7000:
			return PlatformIBMPC
		case sectors == 18 && lengthBytes >= 12000 && lengthBytes <= 14000:
			return PlatformIBMPC
		}
	case 0x9521, 0xA245, 0xA89A:
		return PlatformAmiga
	case 0xD5AA, 0x96AD:
		return PlatformAppleII
	case 0x52FF, 0xFF52:
		return PlatformC64
	}
	return PlatformUnknown
}

// Classification is the structural analysis of one raw track read.
type Classification struct {
	Type       TrackType
	Confidence float64
	Protected  bool

	// Platform is the machine family: the profile's when one was
	// given, otherwise guessed from the sync layout. Format names
	// the matched profile; Encoding is meaningful only when Format
	// is set.
	Platform Platform
	Format   string
	Encoding flux.Encoding

	// TrackLength is the measured data length in bytes.
	TrackLength int

	Syncs   SyncScan
	Sectors SectorLayout

	// Gap and WriteStart are set when GapFound; WriteStart is the
	// splice offset for rewriting the track.
	Gap        Gap
	GapFound   bool
	WriteStart int

	// Breakpoints are run boundaries found in syncless data.
	Breakpoints []int

	LongTrack bool

	// Scheme names the recognized protection, empty when none. A
	// scheme can be named on a track that still classifies as
	// standard: a protection sync mark over a clean uniform layout.
	Scheme string
}

// Classify analyzes a raw track read. With a profile, the scan uses
// its sync marks and tolerance; with nil, every known mark is tried
// and the platform is guessed, with the detected platform's builtin
// profile supplying the long-track threshold.
func Classify(data []byte, profile *Profile) (*Classification, error) {
	if len(data) < 100 {
		return nil, fmt.Errorf("platform: track read of %d bytes is too short to classify", len(data))
	}
	m, err := track.Measure(data)
	if err != nil {
		return nil, err
	}

	c := &Classification{TrackLength: m.LengthBytes}

	// The scan covers one revolution from the start of data, so a
	// doubled read does not count its sectors twice.
	bound := min(m.FirstData+m.LengthBytes, len(data))

	patterns := allSyncs
	tolerance := defaultTolerance
	if profile != nil {
		patterns = profile.SyncPatterns
		tolerance = profile.SectorTolerance
	}
	c.Syncs = ScanSyncs(data[:bound], patterns)

	if len(c.Syncs.Hits) == 0 {
		if bps, ok := DetectBreakpoints(data[:bound], defaultMaxBreakpoints); ok {
			c.Breakpoints = bps
			c.Type = TrackProtected
			c.Protected = true
			c.Confidence = 0.6
			c.Scheme = "Breakpoint Protection"
			return c, nil
		}
		c.Type = TrackNoSync
		return c, nil
	}

	offsets := make([]int, len(c.Syncs.Hits))
	for i, h := range c.Syncs.Hits {
		offsets[i] = h.Offset
	}
	c.Sectors = AnalyzeSectors(offsets, tolerance)
	if gap, ok := GapAnalysis(offsets, tolerance); ok {
		c.Gap = gap
		c.GapFound = true
		c.WriteStart = WriteStart(offsets, gap, PreGapBytes)
	}

	if profile == nil {
		c.Platform = DetectPlatform(c.Syncs.Primary, c.Sectors.Count, c.TrackLength)
		profile = builtinForPlatform(c.Platform)
	} else {
		c.Platform = profile.Platform
	}
	if profile != nil {
		c.Format = profile.Name
		c.Encoding = profile.Encoding
	} else {
		c.Format = c.Platform.String()
	}

	c.LongTrack = IsLongTrack(c.TrackLength, profile)

	switch {
	case c.LongTrack:
		c.Type = TrackLong
		c.Protected = true
		c.Confidence = 0.9
	case len(c.Sectors.Lengths) > 2:
		c.Type = TrackProtected
		c.Protected = true
		c.Confidence = 0.8
	case c.Syncs.BitShifted:
		c.Type = TrackProtected
		c.Protected = true
		c.Confidence = 0.7
	case c.Sectors.Uniform:
		c.Type = TrackStandard
		c.Confidence = 0.95
	default:
		c.Type = TrackProtected
		c.Protected = true
		c.Confidence = 0.6
	}

	c.Scheme = identifyScheme(c, profile)
	return c, nil
}

func identifyScheme(c *Classification, profile *Profile) string {
	if name, ok := SchemeForSync(profile, c.Syncs.Primary); ok {
		return name
	}
	if c.LongTrack {
		return "Long Track Protection"
	}
	if len(c.Breakpoints) > 0 {
		return "Breakpoint Protection"
	}
	if c.Syncs.BitShifted {
		return "Bit-Shifted Sync Protection"
	}
	if !c.Sectors.Uniform && len(c.Sectors.Lengths) > 2 {
		return "Variable Sector Protection"
	}
	return ""
}

// 1541 drives write four speed zones; nominal raw bit counts per
// zone, outer tracks first.
const (
	c64Zone0Bits = 7692 // tracks 1-17
	c64Zone1Bits = 7142 // tracks 18-24
	c64Zone2Bits = 6666 // tracks 25-30
	c64Zone3Bits = 6250 // tracks 31-35
)

// C64ZoneBits returns the nominal raw bit count for a 1541 track
// number.
func C64ZoneBits(trackNum int) int {
	switch {
	case trackNum <= 17:
		return c64Zone0Bits
	case trackNum <= 24:
		return c64Zone1Bits
	case trackNum <= 30:
		return c64Zone2Bits
	default:
		return c64Zone3Bits
	}
}

// C64FatTrack reports whether a 1541 track carries noticeably more
// data than its speed zone allows, with a confidence that grows with
// the excess. Mastering hardware wrote these fat tracks for
// protections a stock drive cannot reproduce.
func C64FatTrack(trackBits, trackNum int) (float64, bool) {
	expected := C64ZoneBits(trackNum)
	percent := trackBits * 100 / expected
	if percent < 105 {
		return 0, false
	}
	switch {
	case percent > 120:
		return 0.95, true
	case percent > 110:
		return 0.8, true
	default:
		return 0.65, true
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
