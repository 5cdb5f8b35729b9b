// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protect

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/fluxkit/lib/codec"
	"github.com/bureau-foundation/fluxkit/lib/protection"
)

// protectedMap is a 2x1 map with one weak bit artifact and one bad
// sector.
func protectedMap(t *testing.T) *protection.Map {
	t.Helper()
	m, err := protection.NewMap(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	tp, err := m.Track(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	tp.Add(protection.Artifact{
		Kind:         protection.WeakBits,
		Sector:       protection.TrackLevel,
		Confidence:   90,
		WeakMask:     []byte{0x08},
		WeakBitCount: 1,
	})
	tp.Add(protection.Artifact{
		Kind:       protection.BadSector,
		Sector:     3,
		Confidence: 80,
	})
	m.Scheme = "Copylock"
	m.Confidence = 85
	m.Recount()
	return m
}

func TestReadMapSnapshot(t *testing.T) {
	want := protectedMap(t)
	snapshot, err := codec.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "game.fluxmap")
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := readMapSnapshot(path)
	if err != nil {
		t.Fatalf("readMapSnapshot: %v", err)
	}
	if m.Cylinders != 2 || m.Heads != 1 {
		t.Errorf("map is %dx%d, want 2x1", m.Cylinders, m.Heads)
	}
	if m.Scheme != "Copylock" {
		t.Errorf("Scheme = %q, want Copylock", m.Scheme)
	}
	if m.TotalWeakBits != 1 || m.TotalBadSectors != 1 {
		t.Errorf("totals = %d weak, %d bad", m.TotalWeakBits, m.TotalBadSectors)
	}
}

func TestReadMapSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.bin")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readMapSnapshot(path); err == nil {
		t.Error("garbage accepted as a map snapshot")
	}

	// Structurally valid CBOR that is not a map snapshot.
	empty, err := codec.Marshal(struct{ Name string }{"x"})
	if err != nil {
		t.Fatal(err)
	}
	path = filepath.Join(t.TempDir(), "other.fluxmap")
	if err := os.WriteFile(path, empty, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readMapSnapshot(path); err == nil {
		t.Error("foreign snapshot accepted")
	}
}

func TestPrintConversionFaithful(t *testing.T) {
	var buf bytes.Buffer
	printConversion(&buf, protection.FormatSCP, 2, nil)
	out := buf.String()
	if !strings.Contains(out, "target: SCP") {
		t.Errorf("target missing:\n%s", out)
	}
	if !strings.Contains(out, "faithful") {
		t.Errorf("faithful conversion not reported:\n%s", out)
	}
}

func TestPrintConversionDrops(t *testing.T) {
	var buf bytes.Buffer
	printConversion(&buf, protection.FormatADF, 1, map[protection.ArtifactKind]int{
		protection.WeakBits:        3,
		protection.TimingVariation: 1,
	})
	out := buf.String()
	if !strings.Contains(out, "3 x Weak Bits") {
		t.Errorf("weak bit drops missing:\n%s", out)
	}
	if !strings.Contains(out, "1 x Timing Variation") {
		t.Errorf("timing drops missing:\n%s", out)
	}
	// WeakBits sorts before TimingVariation.
	if strings.Index(out, "Weak Bits") > strings.Index(out, "Timing Variation") {
		t.Errorf("drop lines not in kind order:\n%s", out)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	m := protectedMap(t)

	converted, dropped, err := protection.Convert(m, protection.FormatADF)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if dropped[protection.WeakBits] != 1 {
		t.Errorf("dropped = %v, want the weak bits artifact", dropped)
	}
	if converted.TotalBadSectors != 1 {
		t.Errorf("TotalBadSectors = %d, want 1 kept", converted.TotalBadSectors)
	}
	if converted.TotalWeakBits != 0 {
		t.Errorf("TotalWeakBits = %d, want 0 after ADF conversion", converted.TotalWeakBits)
	}
}

func TestPrintMatrix(t *testing.T) {
	var buf bytes.Buffer
	printMatrix(&buf)
	out := buf.String()

	if !strings.Contains(out, "FLUXCAP") || !strings.Contains(out, "everything") {
		t.Errorf("flux formats missing:\n%s", out)
	}
	if !strings.Contains(out, "D64") {
		t.Errorf("D64 row missing:\n%s", out)
	}
	if !strings.Contains(out, "nothing") {
		t.Errorf("artifact-free formats not marked:\n%s", out)
	}
}

func TestFormatKeeps(t *testing.T) {
	tests := []struct {
		format protection.Format
		want   string
	}{
		{protection.FormatFluxcap, "everything"},
		{protection.FormatIPF, "everything"},
		{protection.FormatNIB, "Half Track, Sync Pattern"},
		{protection.FormatADF, "Bad Sector"},
		{protection.FormatD64, "nothing"},
	}
	for _, tt := range tests {
		if got := formatKeeps(tt.format); got != tt.want {
			t.Errorf("formatKeeps(%s) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
