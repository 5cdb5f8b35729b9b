// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/fluxkit/lib/clock"
	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/geometry"
	"github.com/bureau-foundation/fluxkit/lib/platform"
	"github.com/bureau-foundation/fluxkit/lib/track"
)

// DefaultTimingTolerancePct is the length deviation a track may show
// before it counts as deliberately long or short.
const DefaultTimingTolerancePct = 5.0

const (
	confidenceWeakBits = 90
	confidenceLength   = 80
	confidenceTiming   = 70
)

// Options configures an Analyzer.
type Options struct {
	// DetectWeakBits enables multi-revolution weak bit detection.
	DetectWeakBits bool

	// AnalyzeTiming enables track length checks against the
	// expected bit count.
	AnalyzeTiming bool

	// WeakBitThreshold is the disagreement ratio for weak bits;
	// zero means DefaultWeakBitThreshold.
	WeakBitThreshold float64

	// TimingTolerancePct is the allowed length deviation; zero
	// means DefaultTimingTolerancePct.
	TimingTolerancePct float64

	// Workers caps concurrent track analysis in AnalyzeImage.
	Workers int

	// Clock defaults to the real clock; tests inject a fake.
	Clock clock.Clock

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// DefaultOptions enables every analysis stage with the standard
// thresholds.
func DefaultOptions() Options {
	return Options{
		DetectWeakBits:     true,
		AnalyzeTiming:      true,
		WeakBitThreshold:   DefaultWeakBitThreshold,
		TimingTolerancePct: DefaultTimingTolerancePct,
		Workers:            1,
	}
}

// Analyzer runs protection analysis over tracks, sector images, and
// flux captures.
type Analyzer struct {
	opts      Options
	clk       clock.Clock
	log       *slog.Logger
	detectors []Detector
}

// NewAnalyzer builds an analyzer, filling zero options with defaults.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.WeakBitThreshold <= 0 {
		opts.WeakBitThreshold = DefaultWeakBitThreshold
	}
	if opts.TimingTolerancePct <= 0 {
		opts.TimingTolerancePct = DefaultTimingTolerancePct
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{opts: opts, clk: clk, log: logger}
}

// Register adds a platform detector consulted during image and
// capture analysis. The highest confidence answer names the scheme.
func (a *Analyzer) Register(d Detector) {
	a.detectors = append(a.detectors, d)
}

// AnalyzeTrack examines one track read: weak bits across the
// revolution reads in revs when there are at least two, and the
// length check against expectedBits. expectedBits is the bit count a
// nominal revolution should hold, derived from the geometry or the
// platform profile; it must be positive while timing analysis is
// enabled, there is no universal default.
func (a *Analyzer) AnalyzeTrack(cylinder, head int, data []byte, revs [][]byte, expectedBits int) (TrackProtection, error) {
	if a.opts.AnalyzeTiming && expectedBits <= 0 {
		return TrackProtection{}, fmt.Errorf("protection: expected bit count %d must be positive; derive it from the geometry or platform profile", expectedBits)
	}
	return a.analyzeTrack(cylinder, head, data, revs, expectedBits)
}

// analyzeTrack is AnalyzeTrack without the expectedBits contract: a
// zero value skips the length check, for callers that already
// recorded the missing baseline as a limitation.
func (a *Analyzer) analyzeTrack(cylinder, head int, data []byte, revs [][]byte, expectedBits int) (TrackProtection, error) {
	if len(data) == 0 {
		return TrackProtection{}, fmt.Errorf("protection: track %d.%d is empty", cylinder, head)
	}

	tp := TrackProtection{
		Cylinder:        cylinder,
		Head:            head,
		TrackLengthBits: len(data) * 8,
	}

	if a.opts.DetectWeakBits && len(revs) >= 2 {
		mask, count, err := DetectWeakBits(revs, a.opts.WeakBitThreshold)
		if err != nil {
			return TrackProtection{}, err
		}
		if count > 0 {
			tp.Add(Artifact{
				Kind:         WeakBits,
				Cylinder:     cylinder,
				Head:         head,
				Sector:       TrackLevel,
				Confidence:   confidenceWeakBits,
				Description:  fmt.Sprintf("%d weak bits detected", count),
				WeakMask:     mask,
				WeakBitCount: count,
			})
			a.log.Debug("weak bits", "cylinder", cylinder, "head", head, "count", count)
		}
	}

	if a.opts.AnalyzeTiming && expectedBits > 0 {
		tp.ExpectedLengthBits = expectedBits
		variance := float64(tp.TrackLengthBits-expectedBits) / float64(expectedBits) * 100
		switch {
		case variance > a.opts.TimingTolerancePct:
			tp.Add(Artifact{
				Kind:        LongTrack,
				Cylinder:    cylinder,
				Head:        head,
				Sector:      TrackLevel,
				Confidence:  confidenceLength,
				Description: fmt.Sprintf("Long track: +%.1f%%", variance),
				VariancePct: variance,
			})
		case variance < -a.opts.TimingTolerancePct:
			tp.Add(Artifact{
				Kind:        ShortTrack,
				Cylinder:    cylinder,
				Head:        head,
				Sector:      TrackLevel,
				Confidence:  confidenceLength,
				Description: fmt.Sprintf("Short track: %.1f%%", variance),
				VariancePct: variance,
			})
		}
	}

	return tp, nil
}

// AnalyzeImage carves a sector image into tracks and analyzes each
// one. A nil geometry is inferred from the image size; the inference
// is a fallback for bare images and marks the geometry heuristic.
//
// Sector images carry a single read per track, so weak bit detection
// cannot run; that is recorded on the map's Limitations rather than
// silently passing. Tracks are analyzed by Options.Workers goroutines
// and cancellation is honored between tracks.
func (a *Analyzer) AnalyzeImage(ctx context.Context, image []byte, geo *geometry.Geometry) (*Map, error) {
	start := a.clk.Now()
	if len(image) == 0 {
		return nil, fmt.Errorf("protection: empty image")
	}

	var g geometry.Geometry
	if geo != nil {
		g = *geo
	} else {
		inferred, err := geometry.InferFromSize(len(image))
		if err != nil {
			return nil, err
		}
		g = inferred
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	m, err := NewMap(g.Cylinders, g.Heads)
	if err != nil {
		return nil, err
	}
	m.Geometry = g
	m.Source = image

	if a.opts.DetectWeakBits {
		m.Limitations = append(m.Limitations,
			"weak bit detection needs multiple revolutions; sector images carry a single read per track")
	}

	// Sector images are already decoded, so the expected length is
	// the geometry's own track stride. The final track may be
	// partial and is analyzed as-is.
	expectedBits := g.TrackBytes * 8

	type trackJob struct {
		index          int
		cylinder, head int
		data           []byte
	}
	var jobs []trackJob
	offset := 0
	for c := 0; c < g.Cylinders && offset < len(image); c++ {
		for h := 0; h < g.Heads && offset < len(image); h++ {
			end := min(offset+g.TrackBytes, len(image))
			jobs = append(jobs, trackJob{
				index:    c*g.Heads + h,
				cylinder: c,
				head:     h,
				data:     image[offset:end],
			})
			offset = end
		}
	}

	workers := min(a.opts.Workers, len(jobs))
	if workers <= 1 {
		for _, j := range jobs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tp, err := a.analyzeTrack(j.cylinder, j.head, j.data, nil, expectedBits)
			if err != nil {
				return nil, err
			}
			m.Tracks[j.index] = tp
		}
	} else {
		// Each job writes only its own track slot; the WaitGroup is
		// the merge barrier.
		queue := make(chan trackJob)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var firstErr error
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range queue {
					tp, err := a.analyzeTrack(j.cylinder, j.head, j.data, nil, expectedBits)
					if err != nil {
						mu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						mu.Unlock()
						continue
					}
					m.Tracks[j.index] = tp
				}
			}()
		}
	feed:
		for _, j := range jobs {
			select {
			case queue <- j:
			case <-ctx.Done():
				break feed
			}
		}
		close(queue)
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if firstErr != nil {
			return nil, firstErr
		}
	}

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, d := range a.detectors {
			scheme, confidence, ok := d.Detect(j.cylinder, j.head, j.data)
			if !ok {
				continue
			}
			a.log.Debug("detector matched", "detector", d.Name(),
				"cylinder", j.cylinder, "head", j.head,
				"scheme", scheme, "confidence", confidence)
			if confidence > m.Confidence {
				m.Scheme, m.Confidence = scheme, confidence
			}
		}
	}

	m.Recount()
	m.Elapsed = a.clk.Since(start)
	return m, nil
}

// CaptureAnalysis is the full pipeline result for one captured track.
type CaptureAnalysis struct {
	Track TrackProtection

	// Merged is the majority-vote read the artifacts were measured
	// on; Revolutions holds the per-revolution reads it came from.
	Merged      []byte
	Revolutions *track.MultiRev

	Classification *platform.Classification
	Timing         *track.Timing

	// Scheme is the strongest protection named by the classifier or
	// a registered detector, with its 0-100 confidence.
	Scheme     string
	Confidence int

	// Limitations records pipeline stages that could not run.
	Limitations []string

	Elapsed time.Duration
}

// AnalyzeCapture runs the preservation pipeline on one captured
// track: split the read into revolutions, align them on the sync
// mark, merge to a best-of read, then detect weak bits, length
// anomalies, the platform, and its protection scheme. profile may be
// nil; the classifier then guesses the platform from the sync layout.
func (a *Analyzer) AnalyzeCapture(capture *flux.Capture, profile *platform.Profile) (*CaptureAnalysis, error) {
	start := a.clk.Now()
	if capture == nil {
		return nil, fmt.Errorf("protection: nil capture")
	}
	if err := capture.Validate(); err != nil {
		return nil, err
	}
	revs := capture.DataRevolutions()
	if len(revs) == 0 {
		return nil, fmt.Errorf("protection: capture %d.%d has no decoded revolutions; run clock recovery first",
			capture.Cylinder, capture.Head)
	}

	var mr *track.MultiRev
	if len(revs) == 1 {
		// One long read holding several revolutions end to end.
		meas, err := track.Measure(revs[0])
		if err != nil {
			return nil, err
		}
		if !meas.Valid {
			return nil, fmt.Errorf("protection: capture %d.%d holds no plausible track (%d data bytes)",
				capture.Cylinder, capture.Head, meas.LengthBytes)
		}
		mr, err = track.Split(revs[0], meas.LengthBytes)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		mr, err = track.FromRevolutions(revs)
		if err != nil {
			return nil, err
		}
	}

	res := &CaptureAnalysis{Revolutions: mr}

	syncWord := capture.Encoding.SyncPattern()
	if profile != nil && len(profile.SyncPatterns) > 0 {
		syncWord = uint16(profile.SyncPatterns[0])
	}
	mr.Align(syncWord)
	merged := mr.Merge()
	res.Merged = merged

	// Weak bits vote across the revolutions trimmed to a common
	// length, the same positions Merge votes on.
	var weakRevs [][]byte
	if a.opts.DetectWeakBits {
		if len(mr.Revs) >= 2 {
			shortest := len(mr.Revs[0].Data)
			for _, rev := range mr.Revs[1:] {
				shortest = min(shortest, len(rev.Data))
			}
			weakRevs = make([][]byte, len(mr.Revs))
			for i, rev := range mr.Revs {
				weakRevs[i] = rev.Data[:shortest]
			}
		} else {
			res.Limitations = append(res.Limitations,
				"weak bit detection skipped: capture holds a single revolution")
		}
	}

	cls, err := platform.Classify(merged, profile)
	if err != nil {
		return nil, err
	}
	res.Classification = cls
	if cls.Scheme != "" {
		res.Scheme = cls.Scheme
		res.Confidence = int(cls.Confidence * 100)
	}

	expectedBits := 0
	switch {
	case profile != nil && profile.TrackLengthNominal > 0:
		expectedBits = profile.TrackLengthNominal * 8
	case cls.Format != "":
		if p, ok := platform.Builtin().Lookup(cls.Format); ok {
			expectedBits = p.TrackLengthNominal * 8
		}
	}
	if a.opts.AnalyzeTiming && expectedBits == 0 {
		res.Limitations = append(res.Limitations,
			"track length check skipped: no platform profile matched, so the nominal length is unknown")
	}

	tp, err := a.analyzeTrack(capture.Cylinder, capture.Head, merged, weakRevs, expectedBits)
	if err != nil {
		return nil, err
	}

	// Sync-mark schemes become artifacts so that conversion and
	// write planning see them.
	if cls.Scheme != "" {
		_, syncScheme := platform.SchemeForSync(profile, cls.Syncs.Primary)
		if syncScheme || cls.Syncs.BitShifted {
			tp.Add(Artifact{
				Kind:        SyncPattern,
				Cylinder:    capture.Cylinder,
				Head:        capture.Head,
				Sector:      TrackLevel,
				Confidence:  int(cls.Confidence * 100),
				Description: cls.Scheme,
			})
		}
	}

	if a.opts.AnalyzeTiming {
		// merged is in the raw bitstream domain: one bit per cell.
		bitTimeUS := capture.Encoding.CellNanoseconds() / 1000
		timing, terr := track.AnalyzeTiming(merged, syncWord, bitTimeUS)
		if terr != nil {
			a.log.Debug("timing analysis skipped",
				"cylinder", capture.Cylinder, "head", capture.Head, "error", terr)
		} else {
			res.Timing = timing
			// Long tracks are already covered by the bit-count
			// check, with the better evidence.
			if timing.Protected && timing.Protection != "Long Track" {
				tp.Add(Artifact{
					Kind:        TimingVariation,
					Cylinder:    capture.Cylinder,
					Head:        capture.Head,
					Sector:      TrackLevel,
					Confidence:  confidenceTiming,
					Description: timing.Protection,
				})
			}
		}
	}

	for _, d := range a.detectors {
		scheme, confidence, ok := d.Detect(capture.Cylinder, capture.Head, merged)
		if !ok {
			continue
		}
		a.log.Debug("detector matched", "detector", d.Name(),
			"scheme", scheme, "confidence", confidence)
		if confidence > res.Confidence {
			res.Scheme, res.Confidence = scheme, confidence
		}
	}

	res.Track = tp
	res.Elapsed = a.clk.Since(start)
	return res, nil
}

// MapForCapture lifts a single-capture analysis into a disk map
// covering just that track, so the grid renderer, report writer, and
// format converters can run on one captured track. The map spans the
// capture's own cylinder and head, not a whole disk.
func MapForCapture(capture *flux.Capture, analysis *CaptureAnalysis) (*Map, error) {
	if capture == nil || analysis == nil {
		return nil, fmt.Errorf("capture and analysis required")
	}
	m, err := NewMap(capture.Cylinder+1, capture.Head+1)
	if err != nil {
		return nil, err
	}
	tp, err := m.Track(capture.Cylinder, capture.Head)
	if err != nil {
		return nil, err
	}
	*tp = analysis.Track
	tp.Cylinder = capture.Cylinder
	tp.Head = capture.Head
	m.Scheme = analysis.Scheme
	m.Confidence = analysis.Confidence
	m.Limitations = append(m.Limitations, analysis.Limitations...)
	m.Elapsed = analysis.Elapsed
	m.Source = analysis.Merged
	m.Geometry = geometry.Geometry{
		Cylinders:  capture.Cylinder + 1,
		Heads:      capture.Head + 1,
		TrackBytes: len(analysis.Merged),
		Encoding:   capture.Encoding,
	}
	m.Recount()
	return m, nil
}
