// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"fmt"
	"strings"
)

// Format identifies a disk image container, for checking which
// artifacts survive a conversion.
type Format uint8

const (
	FormatUnknown Format = iota

	// FormatFluxcap is the native flux capture container.
	FormatFluxcap
	FormatSCP
	FormatKryoflux
	FormatHFE
	FormatIPF
	FormatA2R
	FormatWOZ

	// Bitstream containers.
	FormatG64
	FormatG71
	FormatNIB

	// Sector images.
	FormatADF
	FormatST
	FormatIMG
	FormatD64
)

var formatNames = map[Format]string{
	FormatFluxcap:  "FLUXCAP",
	FormatSCP:      "SCP",
	FormatKryoflux: "KryoFlux",
	FormatHFE:      "HFE",
	FormatIPF:      "IPF",
	FormatA2R:      "A2R",
	FormatWOZ:      "WOZ",
	FormatG64:      "G64",
	FormatG71:      "G71",
	FormatNIB:      "NIB",
	FormatADF:      "ADF",
	FormatST:       "ST",
	FormatIMG:      "IMG",
	FormatD64:      "D64",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "Unknown"
}

// Formats lists every known format in declaration order: flux
// containers first, then bitstream containers, then sector images.
func Formats() []Format {
	formats := make([]Format, 0, len(formatNames))
	for f := FormatFluxcap; f <= FormatD64; f++ {
		formats = append(formats, f)
	}
	return formats
}

// ParseFormat resolves a format name, ignoring case ("adf", "scp",
// "kryoflux" all work).
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	known := make([]string, 0, len(formatNames))
	for _, f := range Formats() {
		known = append(known, formatNames[f])
	}
	return FormatUnknown, fmt.Errorf("protection: unknown format %q (known: %s)",
		name, strings.Join(known, ", "))
}

// supports is the artifact kinds the format can represent. Flux
// containers keep everything; bitstream containers keep what their
// track encoding carries; sector images keep at most bad sector
// flags.
func (f Format) supports() ArtifactKind {
	switch f {
	case FormatFluxcap, FormatSCP, FormatKryoflux, FormatHFE,
		FormatIPF, FormatA2R, FormatWOZ:
		return AllArtifacts
	case FormatG64, FormatG71:
		return WeakBits | SyncPattern | GapLength
	case FormatNIB:
		return SyncPattern | HalfTrack
	case FormatADF, FormatST:
		return BadSector
	default:
		return 0
	}
}

// SupportsArtifact reports whether the format can represent every
// kind in the set.
func (f Format) SupportsArtifact(kind ArtifactKind) bool {
	return f.supports()&kind == kind
}

// Convert deep-copies a protection map for a target format, dropping
// the artifacts the format cannot represent. The returned counts say
// how many artifacts of each kind were dropped, so callers can warn
// before a lossy conversion; an empty map means the conversion was
// faithful.
func Convert(src *Map, target Format) (*Map, map[ArtifactKind]int, error) {
	if src == nil {
		return nil, nil, fmt.Errorf("protection: nil map")
	}

	dst, err := NewMap(src.Cylinders, src.Heads)
	if err != nil {
		return nil, nil, err
	}
	dst.Scheme = src.Scheme
	dst.Confidence = src.Confidence
	dst.Geometry = src.Geometry
	dst.Limitations = append([]string(nil), src.Limitations...)
	dst.Elapsed = src.Elapsed
	dst.Source = src.Source

	dropped := make(map[ArtifactKind]int)
	for i := range src.Tracks {
		srcTrack := &src.Tracks[i]
		dstTrack := &dst.Tracks[i]
		dstTrack.TrackLengthBits = srcTrack.TrackLengthBits
		dstTrack.ExpectedLengthBits = srcTrack.ExpectedLengthBits

		for _, a := range srcTrack.Artifacts {
			if !target.SupportsArtifact(a.Kind) {
				dropped[a.Kind]++
				continue
			}
			dstTrack.Add(cloneArtifact(a))
		}
	}

	dst.Recount()
	return dst, dropped, nil
}

// cloneArtifact copies an artifact with its own mask and data
// allocations, so mutating one map never reaches the other.
func cloneArtifact(a Artifact) Artifact {
	a.WeakMask = append([]byte(nil), a.WeakMask...)
	a.OriginalData = append([]byte(nil), a.OriginalData...)
	return a
}
