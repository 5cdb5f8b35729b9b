// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/fluxkit/lib/geometry"
)

// TrackLevel marks an artifact that applies to the whole track rather
// than one sector.
const TrackLevel = -1

// ArtifactKind is a bit set of protection artifact categories. Flux
// analysis produces WeakBits, LongTrack, ShortTrack, SyncPattern, and
// TimingVariation. The sector-level kinds (bad, duplicate, missing,
// extra sectors, CRC and data-mark state, gap and density anomalies)
// are recorded by format-aware tooling; maps, reports, and write
// plans carry them through unchanged.
type ArtifactKind uint32

const (
	WeakBits ArtifactKind = 1 << iota
	BadSector
	TimingVariation
	DuplicateSector
	MissingSector
	ExtraSector
	LongTrack
	ShortTrack
	HalfTrack
	SyncPattern
	GapLength
	DensityVariation
	SectorID
	CRCError
	DataMark
)

// AllArtifacts is every kind this package records.
const AllArtifacts = WeakBits | BadSector | TimingVariation |
	DuplicateSector | MissingSector | ExtraSector | LongTrack |
	ShortTrack | HalfTrack | SyncPattern | GapLength |
	DensityVariation | SectorID | CRCError | DataMark

var artifactNames = []struct {
	kind ArtifactKind
	name string
}{
	{WeakBits, "Weak Bits"},
	{BadSector, "Bad Sector"},
	{TimingVariation, "Timing Variation"},
	{DuplicateSector, "Duplicate Sector"},
	{MissingSector, "Missing Sector"},
	{ExtraSector, "Extra Sector"},
	{LongTrack, "Long Track"},
	{ShortTrack, "Short Track"},
	{HalfTrack, "Half Track"},
	{SyncPattern, "Sync Pattern"},
	{GapLength, "Gap Length"},
	{DensityVariation, "Density Variation"},
	{SectorID, "Sector ID Anomaly"},
	{CRCError, "CRC Error"},
	{DataMark, "Data Mark Anomaly"},
}

// String names a single kind; combined sets join their names with |.
func (k ArtifactKind) String() string {
	if k == 0 {
		return "None"
	}
	var parts []string
	for _, e := range artifactNames {
		if k&e.kind != 0 {
			parts = append(parts, e.name)
			k &^= e.kind
		}
	}
	if k != 0 {
		parts = append(parts, fmt.Sprintf("Unknown(%#x)", uint32(k)))
	}
	return strings.Join(parts, "|")
}

// Has reports whether every kind in mask is present.
func (k ArtifactKind) Has(mask ArtifactKind) bool { return k&mask == mask }

// Artifact is one detected protection feature.
type Artifact struct {
	Kind ArtifactKind

	// Cylinder and Head locate the track; Sector is the sector index
	// within it, or TrackLevel for track-wide artifacts.
	Cylinder int
	Head     int
	Sector   int

	// Confidence is 0-100.
	Confidence int

	Description string

	// WeakMask marks the unstable bits when Kind is WeakBits. Set
	// bits flip between revolution reads.
	WeakMask     []byte
	WeakBitCount int

	// OriginalData snapshots the bytes an artifact replaces on
	// write, when a caller wants to restore them.
	OriginalData []byte

	// VariancePct is the deviation from the expected track length
	// for long and short track artifacts.
	VariancePct float64
}

// TrackProtection collects the artifacts found on one track.
type TrackProtection struct {
	Cylinder int
	Head     int

	Artifacts []Artifact

	// Kinds is the union of artifact kinds on this track.
	Kinds ArtifactKind

	// TrackLengthBits is the measured length; ExpectedLengthBits the
	// geometry- or profile-derived nominal it was checked against,
	// zero when no length check ran.
	TrackLengthBits    int
	ExpectedLengthBits int
}

// Add records an artifact on the track.
func (t *TrackProtection) Add(a Artifact) {
	t.Artifacts = append(t.Artifacts, a)
	t.Kinds |= a.Kind
}

// WeakMask returns the track's weak bit mask, nil when the track has
// no weak bits.
func (t *TrackProtection) WeakMask() []byte {
	for i := range t.Artifacts {
		if t.Artifacts[i].Kind == WeakBits && len(t.Artifacts[i].WeakMask) > 0 {
			return t.Artifacts[i].WeakMask
		}
	}
	return nil
}

// Map is the protection analysis of a whole disk.
type Map struct {
	Cylinders int
	Heads     int

	// Tracks is indexed cylinder*Heads+head.
	Tracks []TrackProtection

	// Scheme names the strongest recognized protection with its
	// 0-100 confidence; empty when nothing was recognized.
	Scheme     string
	Confidence int

	// Present is the union of artifact kinds across all tracks. The
	// totals below are maintained by Recount.
	Present               ArtifactKind
	TotalWeakBits         int
	TotalBadSectors       int
	TotalTimingAnomalies  int
	TotalDuplicateSectors int
	HalfTracks            int

	Geometry geometry.Geometry

	// Limitations records analysis steps that could not run on this
	// input, such as weak bit detection on a single-read image.
	Limitations []string

	// Elapsed is the wall-clock analysis time.
	Elapsed time.Duration

	// Source retains the analyzed image for conversion and report
	// excerpts.
	Source []byte
}

// NewMap allocates a protection map for the given disk dimensions.
func NewMap(cylinders, heads int) (*Map, error) {
	if cylinders < 1 || cylinders > geometry.MaxCylinders {
		return nil, fmt.Errorf("protection: %d cylinders outside 1-%d",
			cylinders, geometry.MaxCylinders)
	}
	if heads < 1 || heads > 2 {
		return nil, fmt.Errorf("protection: %d heads outside 1-2", heads)
	}

	m := &Map{
		Cylinders: cylinders,
		Heads:     heads,
		Tracks:    make([]TrackProtection, cylinders*heads),
	}
	for c := 0; c < cylinders; c++ {
		for h := 0; h < heads; h++ {
			t := &m.Tracks[c*heads+h]
			t.Cylinder = c
			t.Head = h
		}
	}
	return m, nil
}

// Track returns the protection record for one track position.
func (m *Map) Track(cylinder, head int) (*TrackProtection, error) {
	if cylinder < 0 || cylinder >= m.Cylinders {
		return nil, fmt.Errorf("protection: cylinder %d outside 0-%d",
			cylinder, m.Cylinders-1)
	}
	if head < 0 || head >= m.Heads {
		return nil, fmt.Errorf("protection: head %d outside 0-%d",
			head, m.Heads-1)
	}
	return &m.Tracks[cylinder*m.Heads+head], nil
}

// Recount rebuilds Present and the artifact totals from the tracks.
// Call it after mutating track records directly.
func (m *Map) Recount() {
	m.Present = 0
	m.TotalWeakBits = 0
	m.TotalBadSectors = 0
	m.TotalTimingAnomalies = 0
	m.TotalDuplicateSectors = 0
	m.HalfTracks = 0

	for i := range m.Tracks {
		t := &m.Tracks[i]
		m.Present |= t.Kinds

		for j := range t.Artifacts {
			a := &t.Artifacts[j]
			switch a.Kind {
			case WeakBits:
				m.TotalWeakBits += a.WeakBitCount
			case BadSector:
				m.TotalBadSectors++
			case DuplicateSector:
				m.TotalDuplicateSectors++
			}
		}

		if t.Kinds&(LongTrack|ShortTrack|TimingVariation) != 0 {
			m.TotalTimingAnomalies++
		}
		if t.Kinds&HalfTrack != 0 {
			m.HalfTracks++
		}
	}
}
