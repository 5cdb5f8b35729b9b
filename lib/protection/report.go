// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

var reportRule = strings.Repeat("═", 63)

// WriteReport writes the plain-text analysis report.
func WriteReport(w io.Writer, m *Map) error {
	if m == nil {
		return fmt.Errorf("protection: nil map")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  COPY PROTECTION ANALYSIS REPORT\n%s\n\n", reportRule, reportRule)

	scheme := m.Scheme
	if scheme == "" {
		scheme = "None detected"
	}
	fmt.Fprintf(&b, "Scheme:     %s\nConfidence: %d%%\n\n", scheme, m.Confidence)

	b.WriteString("ARTIFACTS DETECTED:\n")
	if m.Present.Has(WeakBits) {
		fmt.Fprintf(&b, "  ✓ Weak bits:      %d total\n", m.TotalWeakBits)
	}
	if m.Present.Has(BadSector) {
		fmt.Fprintf(&b, "  ✓ Bad sectors:    %d\n", m.TotalBadSectors)
	}
	if m.Present&(LongTrack|ShortTrack|TimingVariation) != 0 {
		fmt.Fprintf(&b, "  ✓ Timing anomalies: %d tracks\n", m.TotalTimingAnomalies)
	}
	if m.Present.Has(DuplicateSector) {
		fmt.Fprintf(&b, "  ✓ Duplicate sectors: %d\n", m.TotalDuplicateSectors)
	}
	if m.Present.Has(HalfTrack) {
		fmt.Fprintf(&b, "  ✓ Half tracks:    %d\n", m.HalfTracks)
	}
	counted := WeakBits | BadSector | LongTrack | ShortTrack |
		TimingVariation | DuplicateSector | HalfTrack
	if rest := m.Present &^ counted; rest != 0 {
		fmt.Fprintf(&b, "  ✓ Other:          %s\n", rest)
	}
	if m.Present == 0 {
		b.WriteString("  (No protection artifacts detected)\n")
	}

	fmt.Fprintf(&b, "\nGEOMETRY:\n  Cylinders: %d\n  Heads:     %d\n  Tracks:    %d\n\n",
		m.Cylinders, m.Heads, len(m.Tracks))

	if len(m.Limitations) > 0 {
		b.WriteString("NOTES:\n")
		for _, l := range m.Limitations {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Analysis time: %.2f ms\n%s\n",
		float64(m.Elapsed)/float64(time.Millisecond), reportRule)

	_, err := io.WriteString(w, b.String())
	return err
}

// maskExcerptBytes bounds the hex excerpt in the markdown report.
const maskExcerptBytes = 128

// MarkdownReport renders the analysis as a markdown document: a
// summary header, the per-track artifact table, preservation
// recommendations, and a hex excerpt of the first weak mask.
func MarkdownReport(m *Map) (string, error) {
	if m == nil {
		return "", fmt.Errorf("protection: nil map")
	}

	var b strings.Builder
	b.WriteString("# Protection Analysis Report\n\n")

	scheme := "None detected"
	if m.Scheme != "" {
		scheme = fmt.Sprintf("%s (%d%% confidence)", m.Scheme, m.Confidence)
	}
	fmt.Fprintf(&b, "**Scheme:** %s  \n", scheme)
	fmt.Fprintf(&b, "**Geometry:** %d cylinders, %d heads, %d tracks  \n\n",
		m.Cylinders, m.Heads, len(m.Tracks))

	b.WriteString("## Artifacts\n\n")
	if m.Present == 0 {
		b.WriteString("No protection artifacts detected.\n\n")
	} else {
		b.WriteString("| Track | Kind | Confidence | Description |\n")
		b.WriteString("|-------|------|------------|-------------|\n")
		for i := range m.Tracks {
			t := &m.Tracks[i]
			for _, a := range t.Artifacts {
				fmt.Fprintf(&b, "| %d.%d | %s | %d%% | %s |\n",
					t.Cylinder, t.Head, a.Kind, a.Confidence, a.Description)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Preservation Recommendations\n\n")
	fmt.Fprintf(&b, "- **Scheme:** %s\n", PreservationNotes(m.Scheme))
	if m.Present.Has(WeakBits) {
		b.WriteString("- **Weak bits:** Multiple revolutions required. Use weak bit detection.\n")
	}
	b.WriteString("\n")

	if len(m.Limitations) > 0 {
		b.WriteString("## Limitations\n\n")
		for _, l := range m.Limitations {
			fmt.Fprintf(&b, "- %s\n", l)
		}
		b.WriteString("\n")
	}

	for i := range m.Tracks {
		t := &m.Tracks[i]
		mask := t.WeakMask()
		if mask == nil {
			continue
		}
		if len(mask) > maskExcerptBytes {
			mask = mask[:maskExcerptBytes]
		}
		fmt.Fprintf(&b, "## Weak Mask (track %d.%d)\n\n", t.Cylinder, t.Head)
		fmt.Fprintf(&b, "```hexdump\n%s```\n", hex.Dump(mask))
		break
	}

	return b.String(), nil
}

// PreservationNotes recommends how to capture a disk so the named
// scheme survives. The default covers schemes with no specific
// guidance.
func PreservationNotes(scheme string) string {
	switch scheme {
	case "":
		return "Standard preservation methods apply."
	case "V-MAX!":
		return "Capture multiple revolutions. Long sync regions must be preserved exactly."
	case "RapidLok":
		return "Include half-tracks. Preserve illegal GCR patterns."
	case "Fat Track Protection":
		return "Ensure full track length is captured. May require slow read."
	case "Nibble Count Protection":
		return "Capture exact track length. Do not normalize."
	case "Copylock ST":
		return "Track 79 is critical. Use flux capture for LFSR data."
	case "Long Track Protection":
		return "Do not normalize track length. Preserve exact size."
	default:
		return "Use flux-level capture for best preservation."
	}
}
