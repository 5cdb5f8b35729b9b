// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package diskui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/fluxkit/lib/protection"
)

// analyzedMap builds a map with every track analyzed and clean.
func analyzedMap(t *testing.T, cylinders, heads int) *protection.Map {
	t.Helper()
	m, err := protection.NewMap(cylinders, heads)
	if err != nil {
		t.Fatalf("NewMap(%d, %d): %v", cylinders, heads, err)
	}
	for i := range m.Tracks {
		m.Tracks[i].TrackLengthBits = 99904
	}
	return m
}

func addArtifact(t *testing.T, m *protection.Map, cylinder, head int, kind protection.ArtifactKind) {
	t.Helper()
	track, err := m.Track(cylinder, head)
	if err != nil {
		t.Fatalf("Track(%d, %d): %v", cylinder, head, err)
	}
	track.Add(protection.Artifact{
		Kind:       kind,
		Cylinder:   cylinder,
		Head:       head,
		Sector:     protection.TrackLevel,
		Confidence: 90,
	})
}

func TestClassifyTrack(t *testing.T) {
	tests := []struct {
		name   string
		kinds  protection.ArtifactKind
		length int
		want   trackStatus
	}{
		{"unanalyzed", 0, 0, statusUnanalyzed},
		{"clean", 0, 99904, statusClean},
		{"weak bits", protection.WeakBits, 99904, statusWeak},
		{"weak bits win over long track", protection.WeakBits | protection.LongTrack, 104096, statusWeak},
		{"long track", protection.LongTrack | protection.SyncPattern, 104096, statusLong},
		{"short track", protection.ShortTrack, 91552, statusShort},
		{"other protection", protection.SyncPattern | protection.GapLength, 99904, statusProtected},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			track := protection.TrackProtection{
				Kinds:           test.kinds,
				TrackLengthBits: test.length,
			}
			if got := classifyTrack(&track); got != test.want {
				t.Errorf("classifyTrack = %d, want %d", got, test.want)
			}
		})
	}
}

func TestRenderGridLayout(t *testing.T) {
	m := analyzedMap(t, 40, 2)
	addArtifact(t, m, 5, 0, protection.WeakBits)
	addArtifact(t, m, 12, 1, protection.LongTrack)

	stripped := ansi.Strip(RenderGrid(m, 80))
	lines := strings.Split(stripped, "\n")

	// One band: tick header, two head rows, blank, legend.
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), stripped)
	}
	if !strings.HasPrefix(lines[0], "   0") {
		t.Errorf("tick header should start at cylinder 0: %q", lines[0])
	}
	if !strings.Contains(lines[0], "10") || !strings.Contains(lines[0], "30") {
		t.Errorf("tick header missing cylinder numbers: %q", lines[0])
	}

	for head, line := range lines[1:3] {
		if !strings.HasPrefix(line, "h"+string(rune('0'+head))+" ") {
			t.Errorf("head %d row has wrong gutter: %q", head, line)
		}
		if got := utf8.RuneCountInString(line); got != gridGutterWidth+40 {
			t.Errorf("head %d row is %d cells wide, want %d", head, got-gridGutterWidth, 40)
		}
	}

	head0 := []rune(lines[1])
	if head0[gridGutterWidth+5] != 'w' {
		t.Errorf("cylinder 5 head 0 = %q, want w", head0[gridGutterWidth+5])
	}
	if head0[gridGutterWidth+6] != '●' {
		t.Errorf("cylinder 6 head 0 = %q, want ●", head0[gridGutterWidth+6])
	}
	head1 := []rune(lines[2])
	if head1[gridGutterWidth+12] != 'L' {
		t.Errorf("cylinder 12 head 1 = %q, want L", head1[gridGutterWidth+12])
	}
}

func TestRenderGridBands(t *testing.T) {
	m := analyzedMap(t, 40, 2)

	// Width 30 leaves 27 cells per band, so 40 cylinders split into
	// two bands.
	stripped := ansi.Strip(RenderGrid(m, 30))

	if got := strings.Count(stripped, "h0 "); got != 2 {
		t.Errorf("got %d head 0 rows, want 2:\n%s", got, stripped)
	}
	if !strings.Contains(stripped, "30") {
		t.Errorf("second band should carry the cylinder 30 tick:\n%s", stripped)
	}
}

func TestRenderGridLineCount(t *testing.T) {
	maps := []*protection.Map{
		analyzedMap(t, 40, 2),
		analyzedMap(t, 35, 1),
		analyzedMap(t, 84, 2),
	}
	for _, m := range maps {
		for _, width := range []int{80, 30, 12} {
			rendered := RenderGrid(m, width)
			got := len(strings.Split(rendered, "\n"))
			want := gridLines(m, width)
			if got != want {
				t.Errorf("%dx%d at width %d: rendered %d lines, gridLines says %d",
					m.Cylinders, m.Heads, width, got, want)
			}
		}
	}
}

func TestRenderGridLegend(t *testing.T) {
	stripped := ansi.Strip(RenderGrid(analyzedMap(t, 10, 1), 80))
	for _, label := range []string{"clean", "weak bits", "long track", "short track", "protected", "unanalyzed"} {
		if !strings.Contains(stripped, label) {
			t.Errorf("legend missing %q:\n%s", label, stripped)
		}
	}
}

func TestRenderGridColors(t *testing.T) {
	m := analyzedMap(t, 10, 1)
	addArtifact(t, m, 4, 0, protection.WeakBits)

	rendered := RenderGrid(m, 80)
	if rendered == ansi.Strip(rendered) {
		t.Fatal("expected ANSI styling in grid output")
	}
	if !strings.Contains(rendered, "38;5;196") {
		t.Error("weak cell should use the weak status color")
	}
	if !strings.Contains(rendered, "38;5;114") {
		t.Error("clean cells should use the clean status color")
	}
}

func TestRenderGridCursor(t *testing.T) {
	m := analyzedMap(t, 10, 2)
	cursor := 4*m.Heads + 1

	rendered := renderGrid(m, 80, cursor, DefaultTheme, newRenderer())
	if !strings.Contains(rendered, "48;5;236") {
		t.Error("cursor cell should use the selection background")
	}
	if strings.Contains(RenderGrid(m, 80), "48;5;236") {
		t.Error("grid without a cursor should not use the selection background")
	}
}

func TestRenderGridEmpty(t *testing.T) {
	if got := RenderGrid(nil, 80); got != "" {
		t.Errorf("nil map should render empty, got %q", got)
	}
}
