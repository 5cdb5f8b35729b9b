// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func reportFixture(t *testing.T) *Map {
	t.Helper()
	m, err := NewMap(35, 1)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	m.Scheme = "RapidLok"
	m.Confidence = 70
	m.Tracks[0].Add(Artifact{
		Kind:         WeakBits,
		Sector:       TrackLevel,
		Confidence:   90,
		Description:  "57 weak bits detected",
		WeakMask:     []byte{0xFF, 0x0F},
		WeakBitCount: 57,
	})
	m.Tracks[0].Add(Artifact{
		Kind:        LongTrack,
		Sector:      TrackLevel,
		Confidence:  80,
		Description: "Long track: +8.2%",
		VariancePct: 8.2,
	})
	m.Tracks[2].Add(Artifact{
		Kind:        HalfTrack,
		Cylinder:    2,
		Sector:      TrackLevel,
		Confidence:  65,
		Description: "half track carries data",
	})
	m.Recount()
	m.Elapsed = 2500 * time.Microsecond
	return m
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, reportFixture(t)); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"COPY PROTECTION ANALYSIS REPORT",
		"Scheme:     RapidLok\n",
		"Confidence: 70%\n",
		"ARTIFACTS DETECTED:\n",
		"  ✓ Weak bits:      57 total\n",
		"  ✓ Timing anomalies: 1 tracks\n",
		"  ✓ Half tracks:    1\n",
		"GEOMETRY:\n  Cylinders: 35\n  Heads:     1\n  Tracks:    35\n",
		"Analysis time: 2.50 ms\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "No protection artifacts") {
		t.Error("report claims no artifacts")
	}
}

func TestWriteReportClean(t *testing.T) {
	m, err := NewMap(40, 2)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, m); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Scheme:     None detected\n",
		"Confidence: 0%\n",
		"  (No protection artifacts detected)\n",
		"  Tracks:    80\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "✓") {
		t.Error("clean report lists artifacts")
	}
}

func TestWriteReportOtherAndNotes(t *testing.T) {
	m, err := NewMap(1, 1)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	m.Tracks[0].Add(Artifact{Kind: SyncPattern, Sector: TrackLevel, Confidence: 95})
	m.Recount()
	m.Limitations = []string{"weak bit detection skipped: capture holds a single revolution"}

	var buf bytes.Buffer
	if err := WriteReport(&buf, m); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()

	// Kinds without a running total still show up.
	if !strings.Contains(out, "  ✓ Other:          Sync Pattern\n") {
		t.Errorf("missing Other line:\n%s", out)
	}
	if !strings.Contains(out, "NOTES:\n  - weak bit detection skipped") {
		t.Errorf("missing notes section:\n%s", out)
	}
}

func TestWriteReportNil(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, nil); err == nil {
		t.Error("expected error for nil map")
	}
}

func TestMarkdownReport(t *testing.T) {
	out, err := MarkdownReport(reportFixture(t))
	if err != nil {
		t.Fatalf("MarkdownReport: %v", err)
	}

	for _, want := range []string{
		"# Protection Analysis Report\n",
		"**Scheme:** RapidLok (70% confidence)  \n",
		"**Geometry:** 35 cylinders, 1 heads, 35 tracks  \n",
		"| Track | Kind | Confidence | Description |\n",
		"| 0.0 | Weak Bits | 90% | 57 weak bits detected |\n",
		"| 0.0 | Long Track | 80% | Long track: +8.2% |\n",
		"| 2.0 | Half Track | 65% | half track carries data |\n",
		"## Preservation Recommendations\n",
		"- **Scheme:** Include half-tracks. Preserve illegal GCR patterns.\n",
		"- **Weak bits:** Multiple revolutions required. Use weak bit detection.\n",
		"## Weak Mask (track 0.0)\n",
		"ff 0f",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}

	// The mask excerpt is fenced.
	if strings.Count(out, "```") != 2 {
		t.Errorf("want one fenced block, got %d fences", strings.Count(out, "```"))
	}
}

func TestMarkdownReportClean(t *testing.T) {
	m, err := NewMap(2, 2)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	out, err := MarkdownReport(m)
	if err != nil {
		t.Fatalf("MarkdownReport: %v", err)
	}

	for _, want := range []string{
		"**Scheme:** None detected  \n",
		"No protection artifacts detected.\n",
		"- **Scheme:** Standard preservation methods apply.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "## Weak Mask") {
		t.Error("clean report carries a weak mask excerpt")
	}
	if strings.Contains(out, "## Limitations") {
		t.Error("clean report carries a limitations section")
	}
}

func TestMarkdownReportMaskExcerptBounded(t *testing.T) {
	m, err := NewMap(1, 1)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	mask := bytes.Repeat([]byte{0xAA}, 200)
	m.Tracks[0].Add(Artifact{
		Kind:         WeakBits,
		Sector:       TrackLevel,
		WeakMask:     mask,
		WeakBitCount: 800,
	})
	m.Recount()

	out, err := MarkdownReport(m)
	if err != nil {
		t.Fatalf("MarkdownReport: %v", err)
	}

	// 128 bytes of excerpt: hex dump offsets stop at 0x70.
	if !strings.Contains(out, "00000070") {
		t.Error("excerpt shorter than the bound")
	}
	if strings.Contains(out, "00000080") {
		t.Error("excerpt exceeds the bound")
	}
}

func TestMarkdownReportNil(t *testing.T) {
	if _, err := MarkdownReport(nil); err == nil {
		t.Error("expected error for nil map")
	}
}

func TestPreservationNotes(t *testing.T) {
	tests := []struct {
		scheme string
		want   string
	}{
		{"", "Standard preservation methods apply."},
		{"V-MAX!", "Capture multiple revolutions. Long sync regions must be preserved exactly."},
		{"RapidLok", "Include half-tracks. Preserve illegal GCR patterns."},
		{"Fat Track Protection", "Ensure full track length is captured. May require slow read."},
		{"Nibble Count Protection", "Capture exact track length. Do not normalize."},
		{"Copylock ST", "Track 79 is critical. Use flux capture for LFSR data."},
		{"Long Track Protection", "Do not normalize track length. Preserve exact size."},
		{"Vorpal", "Use flux-level capture for best preservation."},
	}
	for _, tt := range tests {
		if got := PreservationNotes(tt.scheme); got != tt.want {
			t.Errorf("PreservationNotes(%q) = %q, want %q", tt.scheme, got, tt.want)
		}
	}
}
