// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/codec"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/diskui"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
	"github.com/bureau-foundation/fluxkit/lib/geometry"
	"github.com/bureau-foundation/fluxkit/lib/platform"
	"github.com/bureau-foundation/fluxkit/lib/protection"
)

type analyzeResult struct {
	Scheme           string           `json:"scheme"`
	Confidence       int              `json:"confidence"`
	Cylinders        int              `json:"cylinders"`
	Heads            int              `json:"heads"`
	WeakBits         int              `json:"weak_bits"`
	BadSectors       int              `json:"bad_sectors"`
	TimingAnomalies  int              `json:"timing_anomalies"`
	DuplicateSectors int              `json:"duplicate_sectors"`
	HalfTracks       int              `json:"half_tracks"`
	Artifacts        []artifactResult `json:"artifacts"`
	Limitations      []string         `json:"limitations"`
	ElapsedMS        float64          `json:"elapsed_ms"`
}

type artifactResult struct {
	Cylinder     int     `json:"cylinder"`
	Head         int     `json:"head"`
	Sector       int     `json:"sector"`
	Kind         string  `json:"kind"`
	Confidence   int     `json:"confidence"`
	Description  string  `json:"description,omitempty"`
	WeakBitCount int     `json:"weak_bit_count,omitempty"`
	VariancePct  float64 `json:"variance_pct,omitempty"`
}

func analyzeCommand() *cli.Command {
	var (
		jsonOut      cli.JSONOutput
		profileName  string
		profilesPath string
		cylinders    int
		heads        int
		trackBytes   int
		showGrid     bool
		reportSource bool
		markdown     bool
		saveMap      string
		failOn       bool
	)

	return &cli.Command{
		Name:    "analyze",
		Summary: "Analyze a capture or sector image for protection",
		Description: `Run protection analysis on one input file. Flux capture containers
go through the preservation pipeline: revolutions are aligned and
merged, weak bits detected across reads, the platform classified,
and known schemes matched. Any other file is treated as a sector
image and scanned track by track.

Image geometry is inferred from the file size unless --cylinders,
--heads, and --track-bytes pin it. Inferred geometry for
non-standard sizes is a guess and is flagged as such.`,
		Usage: "fluxkit protect analyze [flags] <file>",
		Examples: []cli.Example{
			{
				Description: "Plain report for a decoded capture",
				Command:     "fluxkit protect analyze decoded.fluxcap",
			},
			{
				Description: "Track grid for a disk image",
				Command:     "fluxkit protect analyze --map game.adf",
			},
			{
				Description: "Gate a batch job on a clean result",
				Command:     "fluxkit protect analyze --fail-on-protection dump.img",
			},
		},
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
			flagSet.StringVar(&profileName, "profile", "",
				"platform profile for capture analysis (default: classify from the data)")
			flagSet.StringVar(&profilesPath, "profiles", cfg.Paths.Profiles,
				"JSONC file of profile overrides")
			flagSet.IntVar(&cylinders, "cylinders", 0, "image geometry: cylinders")
			flagSet.IntVar(&heads, "heads", 0, "image geometry: heads")
			flagSet.IntVar(&trackBytes, "track-bytes", 0, "image geometry: bytes per track")
			flagSet.BoolVar(&showGrid, "map", false, "render the track status grid")
			flagSet.BoolVar(&reportSource, "report", false, "print the markdown report source")
			flagSet.BoolVar(&markdown, "markdown", false, "render the markdown report for the terminal")
			flagSet.StringVarP(&saveMap, "save-map", "s", "",
				"write the protection map snapshot to this file")
			flagSet.BoolVar(&failOn, "fail-on-protection", false,
				"exit with code 1 when any protection is found")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("analyze takes one input file, got %d arguments", len(args))
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			profile, err := resolveProfile(profileName, profilesPath)
			if err != nil {
				return err
			}
			geo, err := flagGeometry(cylinders, heads, trackBytes)
			if err != nil {
				return err
			}

			analyzer := protection.NewAnalyzer(analysisOptions(cfg))
			m, err := analyzeData(analyzer, data, profile, geo)
			if err != nil {
				return err
			}
			if m.Geometry.Heuristic {
				cli.NewLogger().Warn("geometry guessed from the file size; pass --cylinders, --heads, and --track-bytes to pin it",
					"cylinders", m.Geometry.Cylinders,
					"heads", m.Geometry.Heads,
					"track_bytes", m.Geometry.TrackBytes)
			}

			if saveMap != "" {
				snapshot, err := codec.Marshal(m)
				if err != nil {
					return err
				}
				if err := os.WriteFile(saveMap, snapshot, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", saveMap)
			}

			emitted, err := jsonOut.EmitJSON(resultFromMap(m))
			if err != nil {
				return err
			}
			if !emitted {
				if err := printAnalysis(os.Stdout, m, showGrid, reportSource, markdown); err != nil {
					return err
				}
			}

			if failOn && (m.Scheme != "" || m.Present != 0) {
				return cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// analyzeData runs the pipeline matching the input bytes: flux
// containers go through capture analysis, anything else is scanned as
// a sector image.
func analyzeData(analyzer *protection.Analyzer, data []byte, profile *platform.Profile, geo *geometry.Geometry) (*protection.Map, error) {
	if fluxstore.IsContainer(data) {
		capture, err := fluxstore.Read(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		res, err := analyzer.AnalyzeCapture(capture, profile)
		if err != nil {
			return nil, err
		}
		return protection.MapForCapture(capture, res)
	}
	return analyzer.AnalyzeImage(context.Background(), data, geo)
}

// analysisOptions applies the configuration's analysis tuning on top
// of the package defaults.
func analysisOptions(cfg *config.Config) protection.Options {
	opts := protection.DefaultOptions()
	if cfg.Analysis.Workers > 0 {
		opts.Workers = cfg.Analysis.Workers
	}
	if cfg.Analysis.WeakBitThreshold > 0 {
		opts.WeakBitThreshold = cfg.Analysis.WeakBitThreshold
	}
	if cfg.Analysis.TimingTolerancePct > 0 {
		opts.TimingTolerancePct = cfg.Analysis.TimingTolerancePct
	}
	return opts
}

// resolveProfile looks a named profile up in the builtin set plus any
// overrides file. An empty name means no fixed profile; capture
// analysis then classifies the platform from the data itself.
func resolveProfile(name, path string) (*platform.Profile, error) {
	set := platform.Builtin()
	if path != "" {
		if err := set.Load(path); err != nil {
			return nil, err
		}
	}
	if name == "" {
		return nil, nil
	}
	p, ok := set.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q; \"fluxkit profile list\" names the known ones", name)
	}
	return &p, nil
}

// flagGeometry builds an explicit image geometry from the flags, nil
// when none were given so the analyzer infers one from the file size.
func flagGeometry(cylinders, heads, trackBytes int) (*geometry.Geometry, error) {
	if cylinders == 0 && heads == 0 && trackBytes == 0 {
		return nil, nil
	}
	if cylinders <= 0 || heads <= 0 || trackBytes <= 0 {
		return nil, fmt.Errorf("--cylinders, --heads, and --track-bytes must be given together")
	}
	return &geometry.Geometry{
		Cylinders:  cylinders,
		Heads:      heads,
		TrackBytes: trackBytes,
	}, nil
}

func resultFromMap(m *protection.Map) analyzeResult {
	res := analyzeResult{
		Scheme:           m.Scheme,
		Confidence:       m.Confidence,
		Cylinders:        m.Cylinders,
		Heads:            m.Heads,
		WeakBits:         m.TotalWeakBits,
		BadSectors:       m.TotalBadSectors,
		TimingAnomalies:  m.TotalTimingAnomalies,
		DuplicateSectors: m.TotalDuplicateSectors,
		HalfTracks:       m.HalfTracks,
		Limitations:      m.Limitations,
		ElapsedMS:        float64(m.Elapsed) / float64(time.Millisecond),
	}
	for i := range m.Tracks {
		t := &m.Tracks[i]
		for _, a := range t.Artifacts {
			res.Artifacts = append(res.Artifacts, artifactResult{
				Cylinder:     a.Cylinder,
				Head:         a.Head,
				Sector:       a.Sector,
				Kind:         a.Kind.String(),
				Confidence:   a.Confidence,
				Description:  a.Description,
				WeakBitCount: a.WeakBitCount,
				VariancePct:  a.VariancePct,
			})
		}
	}
	return res
}

// printAnalysis writes the selected renderings in a fixed order,
// defaulting to the plain report when no rendering flag is set.
func printAnalysis(w io.Writer, m *protection.Map, grid, source, rendered bool) error {
	printed := false
	if grid {
		fmt.Fprintln(w, diskui.RenderGrid(m, outputWidth()))
		printed = true
	}
	if source || rendered {
		doc, err := protection.MarkdownReport(m)
		if err != nil {
			return err
		}
		if source {
			fmt.Fprint(w, doc)
		}
		if rendered {
			fmt.Fprint(w, diskui.RenderMarkdown(doc, outputWidth()))
		}
		printed = true
	}
	if !printed {
		return protection.WriteReport(w, m)
	}
	return nil
}

func outputWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
