// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/geometry"
	"github.com/bureau-foundation/fluxkit/lib/platform"
	"github.com/bureau-foundation/fluxkit/lib/testutil"
)

// stubDetector answers every track with a fixed scheme.
type stubDetector struct {
	scheme     string
	confidence int
}

func (d stubDetector) Name() string { return "stub" }

func (d stubDetector) Detect(cylinder, head int, data []byte) (string, int, bool) {
	return d.scheme, d.confidence, true
}

// amigaTrack builds a nominal-length Amiga DD track image with 11
// evenly spaced sync marks. A zero gap byte means the 0x4E default.
func amigaTrack(pattern uint16, gap byte) []byte {
	return testutil.Track(testutil.TrackSpec{
		Length:  12668,
		Pattern: pattern,
		Sectors: testutil.SequentialSectors(11, 2),
		GapByte: gap,
	})
}

func amigaProfile(t *testing.T) *platform.Profile {
	t.Helper()
	p, ok := platform.Builtin().Lookup("Amiga DD")
	if !ok {
		t.Fatal("Amiga DD profile missing from builtin set")
	}
	return &p
}

func TestAnalyzeTrackWeakBits(t *testing.T) {
	base := testutil.Track(testutil.TrackSpec{
		Length:  2000,
		Pattern: 0x4489,
		Sectors: testutil.SequentialSectors(4, 2),
	})
	revs := [][]byte{base, testutil.FlipBit(base, 777), base}

	a := NewAnalyzer(DefaultOptions())
	tp, err := a.AnalyzeTrack(0, 0, base, revs, len(base)*8)
	if err != nil {
		t.Fatalf("AnalyzeTrack: %v", err)
	}

	if tp.Kinds != WeakBits {
		t.Fatalf("Kinds = %v, want %v", tp.Kinds, WeakBits)
	}
	if len(tp.Artifacts) != 1 {
		t.Fatalf("len(Artifacts) = %d, want 1", len(tp.Artifacts))
	}
	art := tp.Artifacts[0]
	if art.Sector != TrackLevel {
		t.Errorf("Sector = %d, want %d", art.Sector, TrackLevel)
	}
	if art.Confidence != 90 {
		t.Errorf("Confidence = %d, want 90", art.Confidence)
	}
	if art.WeakBitCount != 1 {
		t.Errorf("WeakBitCount = %d, want 1", art.WeakBitCount)
	}
	if art.Description != "1 weak bits detected" {
		t.Errorf("Description = %q", art.Description)
	}

	// Bit 777 is bit 1 of byte 97.
	if art.WeakMask[97] != 0x40 {
		t.Errorf("WeakMask[97] = %#02x, want 0x40", art.WeakMask[97])
	}
}

func TestAnalyzeTrackLength(t *testing.T) {
	a := NewAnalyzer(DefaultOptions())
	const expectedBits = 8000

	tests := []struct {
		name     string
		dataLen  int
		kind     ArtifactKind
		desc     string
		variance float64
	}{
		{"long", 1100, LongTrack, "Long track: +10.0%", 10.0},
		{"short", 900, ShortTrack, "Short track: -10.0%", -10.0},
		{"nominal", 1000, 0, "", 0},
		{"within tolerance", 1040, 0, "", 0},
		{"boundary is not long", 1050, 0, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0x4E}, tt.dataLen)
			tp, err := a.AnalyzeTrack(0, 0, data, nil, expectedBits)
			if err != nil {
				t.Fatalf("AnalyzeTrack: %v", err)
			}
			if tp.ExpectedLengthBits != expectedBits {
				t.Errorf("ExpectedLengthBits = %d, want %d", tp.ExpectedLengthBits, expectedBits)
			}
			if tp.Kinds != tt.kind {
				t.Fatalf("Kinds = %v, want %v", tp.Kinds, tt.kind)
			}
			if tt.kind == 0 {
				return
			}
			art := tp.Artifacts[0]
			if art.Description != tt.desc {
				t.Errorf("Description = %q, want %q", art.Description, tt.desc)
			}
			if art.VariancePct != tt.variance {
				t.Errorf("VariancePct = %v, want %v", art.VariancePct, tt.variance)
			}
			if art.Confidence != 80 {
				t.Errorf("Confidence = %d, want 80", art.Confidence)
			}
		})
	}
}

func TestAnalyzeTrackRequiresExpectedBits(t *testing.T) {
	data := bytes.Repeat([]byte{0x4E}, 1000)

	a := NewAnalyzer(DefaultOptions())
	if _, err := a.AnalyzeTrack(0, 0, data, nil, 0); err == nil {
		t.Error("expected error for zero expected bits with timing enabled")
	}

	// With the length check disabled the baseline is not needed.
	opts := DefaultOptions()
	opts.AnalyzeTiming = false
	tp, err := NewAnalyzer(opts).AnalyzeTrack(0, 0, data, nil, 0)
	if err != nil {
		t.Fatalf("AnalyzeTrack without timing: %v", err)
	}
	if tp.Kinds != 0 || tp.ExpectedLengthBits != 0 {
		t.Errorf("got Kinds %v, ExpectedLengthBits %d; want none", tp.Kinds, tp.ExpectedLengthBits)
	}
}

func TestAnalyzeTrackEmpty(t *testing.T) {
	a := NewAnalyzer(DefaultOptions())
	if _, err := a.AnalyzeTrack(2, 1, nil, nil, 8000); err == nil {
		t.Error("expected error for empty track")
	}
}

func TestAnalyzeImageUniform(t *testing.T) {
	geo := geometry.Geometry{Cylinders: 2, Heads: 2, TrackBytes: 512, Encoding: flux.MFM}
	image := bytes.Repeat([]byte{0x4E}, 2048)

	a := NewAnalyzer(DefaultOptions())
	m, err := a.AnalyzeImage(context.Background(), image, &geo)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}

	if len(m.Tracks) != 4 {
		t.Fatalf("len(Tracks) = %d, want 4", len(m.Tracks))
	}
	for i, tr := range m.Tracks {
		if tr.Kinds != 0 {
			t.Errorf("track %d: Kinds = %v, want none", i, tr.Kinds)
		}
		if tr.TrackLengthBits != 4096 || tr.ExpectedLengthBits != 4096 {
			t.Errorf("track %d: length %d/%d, want 4096/4096",
				i, tr.TrackLengthBits, tr.ExpectedLengthBits)
		}
	}
	if m.Present != 0 {
		t.Errorf("Present = %v, want none", m.Present)
	}

	// Weak bit detection cannot run on a single-read image; that is
	// surfaced, not silently skipped.
	if len(m.Limitations) != 1 {
		t.Fatalf("Limitations = %q, want one entry", m.Limitations)
	}
	if !strings.Contains(m.Limitations[0], "multiple revolutions") {
		t.Errorf("Limitations[0] = %q", m.Limitations[0])
	}

	opts := DefaultOptions()
	opts.DetectWeakBits = false
	m2, err := NewAnalyzer(opts).AnalyzeImage(context.Background(), image, &geo)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if len(m2.Limitations) != 0 {
		t.Errorf("Limitations = %q, want none with weak bits disabled", m2.Limitations)
	}
}

func TestAnalyzeImageShortFinalTrack(t *testing.T) {
	geo := geometry.Geometry{Cylinders: 1, Heads: 2, TrackBytes: 512, Encoding: flux.MFM}
	image := bytes.Repeat([]byte{0x4E}, 768)

	a := NewAnalyzer(DefaultOptions())
	m, err := a.AnalyzeImage(context.Background(), image, &geo)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}

	if m.Tracks[0].Kinds != 0 {
		t.Errorf("track 0: Kinds = %v, want none", m.Tracks[0].Kinds)
	}
	if m.Tracks[1].Kinds != ShortTrack {
		t.Fatalf("track 1: Kinds = %v, want %v", m.Tracks[1].Kinds, ShortTrack)
	}
	if got := m.Tracks[1].Artifacts[0].Description; got != "Short track: -50.0%" {
		t.Errorf("Description = %q", got)
	}
	if m.Present != ShortTrack {
		t.Errorf("Present = %v, want %v", m.Present, ShortTrack)
	}
	if m.TotalTimingAnomalies != 1 {
		t.Errorf("TotalTimingAnomalies = %d, want 1", m.TotalTimingAnomalies)
	}
}

func TestAnalyzeImageInferredGeometry(t *testing.T) {
	// An exact ADF size maps to the known Amiga layout.
	image := bytes.Repeat([]byte{0x4E}, 901120)

	a := NewAnalyzer(DefaultOptions())
	m, err := a.AnalyzeImage(context.Background(), image, nil)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}

	if m.Geometry.Cylinders != 80 || m.Geometry.Heads != 2 {
		t.Errorf("geometry = %dx%d, want 80x2", m.Geometry.Cylinders, m.Geometry.Heads)
	}
	if m.Geometry.TrackBytes != 5632 {
		t.Errorf("TrackBytes = %d, want 5632", m.Geometry.TrackBytes)
	}
	if m.Geometry.Heuristic {
		t.Error("exact ADF size marked heuristic")
	}
	if len(m.Tracks) != 160 {
		t.Errorf("len(Tracks) = %d, want 160", len(m.Tracks))
	}
	if m.Present != 0 {
		t.Errorf("Present = %v, want none", m.Present)
	}
}

func TestAnalyzeImageHeuristicGeometry(t *testing.T) {
	// 50000 bytes matches no known format; the fallback carve is
	// flagged so reports can qualify the geometry.
	image := bytes.Repeat([]byte{0x4E}, 50000)

	a := NewAnalyzer(DefaultOptions())
	m, err := a.AnalyzeImage(context.Background(), image, nil)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}

	if !m.Geometry.Heuristic {
		t.Error("fallback geometry not marked heuristic")
	}
	if m.Geometry.Cylinders != 4 || m.Geometry.TrackBytes != 6250 {
		t.Errorf("geometry = %d cylinders x %d bytes, want 4 x 6250",
			m.Geometry.Cylinders, m.Geometry.TrackBytes)
	}
	if m.Present != 0 {
		t.Errorf("Present = %v, want none", m.Present)
	}
}

func TestAnalyzeImageParallelMatchesSequential(t *testing.T) {
	geo := geometry.Geometry{Cylinders: 8, Heads: 2, TrackBytes: 512, Encoding: flux.MFM}
	image := bytes.Repeat([]byte{0x4E}, 8*2*512-256)

	run := func(workers int) *Map {
		opts := DefaultOptions()
		opts.Workers = workers
		m, err := NewAnalyzer(opts).AnalyzeImage(context.Background(), image, &geo)
		if err != nil {
			t.Fatalf("AnalyzeImage workers=%d: %v", workers, err)
		}
		return m
	}

	m1 := run(1)
	m4 := run(4)

	if !reflect.DeepEqual(m1.Tracks, m4.Tracks) {
		t.Error("parallel analysis produced different tracks than sequential")
	}
	if m1.Present != m4.Present {
		t.Errorf("Present differs: %v vs %v", m1.Present, m4.Present)
	}
	if m1.TotalTimingAnomalies != m4.TotalTimingAnomalies {
		t.Errorf("TotalTimingAnomalies differs: %d vs %d",
			m1.TotalTimingAnomalies, m4.TotalTimingAnomalies)
	}
}

func TestAnalyzeImageCanceled(t *testing.T) {
	geo := geometry.Geometry{Cylinders: 4, Heads: 2, TrackBytes: 512, Encoding: flux.MFM}
	image := bytes.Repeat([]byte{0x4E}, 4096)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		opts := DefaultOptions()
		opts.Workers = workers
		_, err := NewAnalyzer(opts).AnalyzeImage(ctx, image, &geo)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: err = %v, want context.Canceled", workers, err)
		}
	}
}

func TestAnalyzeImageDetectorPicksStrongest(t *testing.T) {
	geo := geometry.Geometry{Cylinders: 1, Heads: 1, TrackBytes: 512, Encoding: flux.MFM}
	image := bytes.Repeat([]byte{0x4E}, 512)

	a := NewAnalyzer(DefaultOptions())
	a.Register(stubDetector{scheme: "Weak Scheme", confidence: 40})
	a.Register(stubDetector{scheme: "Strong Scheme", confidence: 80})

	m, err := a.AnalyzeImage(context.Background(), image, &geo)
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if m.Scheme != "Strong Scheme" || m.Confidence != 80 {
		t.Errorf("scheme = %q (%d%%), want Strong Scheme (80%%)", m.Scheme, m.Confidence)
	}
}

func TestAnalyzeImageErrors(t *testing.T) {
	a := NewAnalyzer(DefaultOptions())

	if _, err := a.AnalyzeImage(context.Background(), nil, nil); err == nil {
		t.Error("expected error for empty image")
	}

	bad := geometry.Geometry{Cylinders: 0, Heads: 2, TrackBytes: 512}
	if _, err := a.AnalyzeImage(context.Background(), make([]byte, 1024), &bad); err == nil {
		t.Error("expected error for invalid geometry")
	}
}

func TestAnalyzeCaptureWeakBits(t *testing.T) {
	base := amigaTrack(0x4489, 0)
	flipped := testutil.FlipBit(base, 100)

	capture := &flux.Capture{
		Encoding: flux.MFM,
		Cylinder: 3,
		Head:     1,
		Revolutions: []flux.Revolution{
			{Data: base}, {Data: flipped}, {Data: base},
		},
	}

	a := NewAnalyzer(DefaultOptions())
	res, err := a.AnalyzeCapture(capture, amigaProfile(t))
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}

	// Two good reads outvote the flipped bit.
	if !bytes.Equal(res.Merged, base) {
		t.Error("merge did not repair the flipped bit")
	}
	if len(res.Revolutions.Revs) != 3 {
		t.Fatalf("revolutions = %d, want 3", len(res.Revolutions.Revs))
	}
	if math.Abs(res.Revolutions.RPMAverage-296.02) > 0.01 {
		t.Errorf("RPMAverage = %v, want ~296.02", res.Revolutions.RPMAverage)
	}
	if res.Revolutions.RPMJitter != 0 {
		t.Errorf("RPMJitter = %v, want 0", res.Revolutions.RPMJitter)
	}

	if res.Track.Kinds != WeakBits {
		t.Fatalf("Kinds = %v, want %v", res.Track.Kinds, WeakBits)
	}
	art := res.Track.Artifacts[0]
	if art.WeakBitCount != 1 {
		t.Errorf("WeakBitCount = %d, want 1", art.WeakBitCount)
	}
	if art.WeakMask[12] != 0x08 {
		t.Errorf("WeakMask[12] = %#02x, want 0x08", art.WeakMask[12])
	}
	if res.Track.Cylinder != 3 || res.Track.Head != 1 {
		t.Errorf("track at %d.%d, want 3.1", res.Track.Cylinder, res.Track.Head)
	}

	// Nominal length per the profile, so no length artifact.
	if res.Track.ExpectedLengthBits != 101344 {
		t.Errorf("ExpectedLengthBits = %d, want 101344", res.Track.ExpectedLengthBits)
	}
	if res.Scheme != "" || res.Confidence != 0 {
		t.Errorf("scheme = %q (%d%%), want none", res.Scheme, res.Confidence)
	}
	if res.Classification.Type != platform.TrackStandard {
		t.Errorf("Type = %v, want %v", res.Classification.Type, platform.TrackStandard)
	}
	if res.Classification.Format != "Amiga DD" {
		t.Errorf("Format = %q, want Amiga DD", res.Classification.Format)
	}
	if len(res.Limitations) != 0 {
		t.Errorf("Limitations = %q, want none", res.Limitations)
	}
	if res.Timing == nil {
		t.Fatal("Timing not populated")
	}
	if res.Timing.Protected {
		t.Errorf("timing flagged %q on a standard track", res.Timing.Protection)
	}
}

func TestAnalyzeCaptureSingleBuffer(t *testing.T) {
	base := amigaTrack(0x4489, 0)
	buffer := append(append([]byte{}, base...), base...)

	capture := &flux.Capture{
		Encoding:    flux.MFM,
		Revolutions: []flux.Revolution{{Data: buffer}},
	}

	a := NewAnalyzer(DefaultOptions())
	res, err := a.AnalyzeCapture(capture, amigaProfile(t))
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}

	// One long read split into its two revolutions.
	if len(res.Revolutions.Revs) != 2 {
		t.Fatalf("revolutions = %d, want 2", len(res.Revolutions.Revs))
	}
	for i, rev := range res.Revolutions.Revs {
		if len(rev.Data) != len(base) {
			t.Errorf("revolution %d: %d bytes, want %d", i, len(rev.Data), len(base))
		}
	}
	if !bytes.Equal(res.Merged, base) {
		t.Error("merged track differs from the source revolution")
	}
	if res.Track.Kinds != 0 {
		t.Errorf("Kinds = %v, want none", res.Track.Kinds)
	}
	if len(res.Limitations) != 0 {
		t.Errorf("Limitations = %q, want none", res.Limitations)
	}
}

func TestAnalyzeCaptureArkanoidSync(t *testing.T) {
	data := amigaTrack(0x9521, 0)
	capture := &flux.Capture{
		Encoding: flux.MFM,
		Revolutions: []flux.Revolution{
			{Data: data}, {Data: data}, {Data: data},
		},
	}

	a := NewAnalyzer(DefaultOptions())
	res, err := a.AnalyzeCapture(capture, amigaProfile(t))
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}

	if res.Scheme != "Arkanoid Protection" {
		t.Errorf("Scheme = %q, want Arkanoid Protection", res.Scheme)
	}
	if res.Confidence != 95 {
		t.Errorf("Confidence = %d, want 95", res.Confidence)
	}

	// The protection mark sits over an otherwise clean layout.
	if res.Classification.Type != platform.TrackStandard {
		t.Errorf("Type = %v, want %v", res.Classification.Type, platform.TrackStandard)
	}
	if res.Track.Kinds != SyncPattern {
		t.Fatalf("Kinds = %v, want %v", res.Track.Kinds, SyncPattern)
	}
	art := res.Track.Artifacts[0]
	if art.Description != "Arkanoid Protection" || art.Confidence != 95 {
		t.Errorf("artifact = %q (%d%%)", art.Description, art.Confidence)
	}
}

func TestAnalyzeCaptureNoProfile(t *testing.T) {
	// Gap byte 0x11 keeps the open scan from matching gap filler, so
	// the platform guess rides on the real sync marks.
	data := amigaTrack(0x4489, 0x11)
	capture := &flux.Capture{
		Encoding:    flux.MFM,
		Revolutions: []flux.Revolution{{Data: data}, {Data: data}},
	}

	a := NewAnalyzer(DefaultOptions())
	res, err := a.AnalyzeCapture(capture, nil)
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}

	if res.Classification.Platform != platform.PlatformAmiga {
		t.Errorf("Platform = %v, want %v", res.Classification.Platform, platform.PlatformAmiga)
	}
	if res.Classification.Format != "Amiga DD" {
		t.Errorf("Format = %q, want Amiga DD", res.Classification.Format)
	}

	// The detected platform's profile supplies the length baseline.
	if res.Track.ExpectedLengthBits != 101344 {
		t.Errorf("ExpectedLengthBits = %d, want 101344", res.Track.ExpectedLengthBits)
	}
	if res.Track.Kinds != 0 {
		t.Errorf("Kinds = %v, want none", res.Track.Kinds)
	}
	if len(res.Limitations) != 0 {
		t.Errorf("Limitations = %q, want none", res.Limitations)
	}
}

func TestAnalyzeCaptureUnknownPlatform(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, 6000)
	capture := &flux.Capture{
		Encoding:    flux.MFM,
		Revolutions: []flux.Revolution{{Data: data}, {Data: data}},
	}

	a := NewAnalyzer(DefaultOptions())
	res, err := a.AnalyzeCapture(capture, nil)
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}

	if res.Classification.Type != platform.TrackNoSync {
		t.Errorf("Type = %v, want %v", res.Classification.Type, platform.TrackNoSync)
	}

	// No profile matched, so there is no length baseline; the skipped
	// check is recorded.
	if res.Track.ExpectedLengthBits != 0 {
		t.Errorf("ExpectedLengthBits = %d, want 0", res.Track.ExpectedLengthBits)
	}
	if len(res.Limitations) != 1 || !strings.Contains(res.Limitations[0], "track length check skipped") {
		t.Errorf("Limitations = %q", res.Limitations)
	}
	if res.Track.Kinds != 0 {
		t.Errorf("Kinds = %v, want none", res.Track.Kinds)
	}
}

func TestAnalyzeCaptureDetectorOverride(t *testing.T) {
	data := amigaTrack(0x9521, 0)
	capture := &flux.Capture{
		Encoding:    flux.MFM,
		Revolutions: []flux.Revolution{{Data: data}, {Data: data}},
	}

	a := NewAnalyzer(DefaultOptions())
	a.Register(stubDetector{scheme: "Custom Scheme", confidence: 99})

	res, err := a.AnalyzeCapture(capture, amigaProfile(t))
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}
	if res.Scheme != "Custom Scheme" || res.Confidence != 99 {
		t.Errorf("scheme = %q (%d%%), want Custom Scheme (99%%)", res.Scheme, res.Confidence)
	}
}

func TestAnalyzeCaptureErrors(t *testing.T) {
	a := NewAnalyzer(DefaultOptions())

	tests := []struct {
		name    string
		capture *flux.Capture
		errText string
	}{
		{"nil capture", nil, "nil capture"},
		{"no revolutions", &flux.Capture{}, "no revolutions"},
		{
			"flux only",
			&flux.Capture{
				SampleRate:  24e6,
				Revolutions: []flux.Revolution{{Flux: []int32{100, 120}}},
			},
			"clock recovery",
		},
		{
			"implausible track",
			&flux.Capture{
				Revolutions: []flux.Revolution{{Data: bytes.Repeat([]byte{0x4E}, 500)}},
			},
			"no plausible track",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AnalyzeCapture(tt.capture, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("err = %v, want mention of %q", err, tt.errText)
			}
		})
	}
}

func TestMapForCapture(t *testing.T) {
	base := amigaTrack(0x4489, 0)
	capture := &flux.Capture{
		Encoding: flux.MFM,
		Cylinder: 3,
		Head:     1,
		Revolutions: []flux.Revolution{
			{Data: base}, {Data: testutil.FlipBit(base, 100)}, {Data: base},
		},
	}

	a := NewAnalyzer(DefaultOptions())
	a.Register(stubDetector{scheme: "Copylock", confidence: 85})
	res, err := a.AnalyzeCapture(capture, amigaProfile(t))
	if err != nil {
		t.Fatalf("AnalyzeCapture: %v", err)
	}

	m, err := MapForCapture(capture, res)
	if err != nil {
		t.Fatalf("MapForCapture: %v", err)
	}
	if m.Cylinders != 4 || m.Heads != 2 {
		t.Errorf("map is %dx%d, want 4x2", m.Cylinders, m.Heads)
	}
	if m.Present != WeakBits {
		t.Errorf("Present = %v, want %v", m.Present, WeakBits)
	}
	tp, err := m.Track(3, 1)
	if err != nil {
		t.Fatalf("Track(3, 1): %v", err)
	}
	if tp.Kinds != WeakBits {
		t.Errorf("Kinds = %v, want %v", tp.Kinds, WeakBits)
	}
	if tp.Cylinder != 3 || tp.Head != 1 {
		t.Errorf("track at %d.%d, want 3.1", tp.Cylinder, tp.Head)
	}
	if m.TotalWeakBits != 1 {
		t.Errorf("TotalWeakBits = %d, want 1", m.TotalWeakBits)
	}
	if m.Scheme != "Copylock" || m.Confidence != 85 {
		t.Errorf("scheme = %q (%d%%), want Copylock (85%%)", m.Scheme, m.Confidence)
	}
	if !bytes.Equal(m.Source, res.Merged) {
		t.Error("Source does not carry the merged track")
	}
	if m.Geometry.Cylinders != 4 || m.Geometry.TrackBytes != len(base) {
		t.Errorf("geometry = %+v, want 4 cylinders with %d-byte tracks", m.Geometry, len(base))
	}

	// An empty slot stays empty.
	other, err := m.Track(0, 0)
	if err != nil {
		t.Fatalf("Track(0, 0): %v", err)
	}
	if len(other.Artifacts) != 0 {
		t.Errorf("untouched track has %d artifacts", len(other.Artifacts))
	}

	if _, err := MapForCapture(nil, res); err == nil {
		t.Error("nil capture accepted")
	}
	if _, err := MapForCapture(capture, nil); err == nil {
		t.Error("nil analysis accepted")
	}
}
