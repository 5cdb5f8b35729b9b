// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/codec"
	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
)

type infoResult struct {
	ID          string            `json:"id"`
	Ref         string            `json:"ref"`
	Encoding    string            `json:"encoding"`
	Cylinder    int               `json:"cylinder"`
	Head        int               `json:"head"`
	SampleRate  float64           `json:"sample_rate_hz,omitempty"`
	Source      string            `json:"source,omitempty"`
	CapturedAt  string            `json:"captured_at,omitempty"`
	Revolutions int               `json:"revolutions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Chunks      []chunkResult     `json:"chunks"`
}

type chunkResult struct {
	Revolution  int    `json:"revolution"`
	Section     string `json:"section"`
	Compression string `json:"compression"`
	Stored      uint32 `json:"stored_bytes"`
	Size        uint32 `json:"size_bytes"`
}

func infoCommand() *cli.Command {
	var (
		jsonOut cli.JSONOutput
		diag    bool
	)

	return &cli.Command{
		Name:    "info",
		Summary: "Show a container's header and chunk directory",
		Description: `Read just the header of a capture container and print its sampling
context, content ID, and chunk directory. The chunk payloads are
never read, so this works instantly on large captures.

--diag prints the header's CBOR diagnostic notation instead, for
debugging container tooling.`,
		Usage: "fluxkit capture info [flags] <capture>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flagSet.BoolVar(&diag, "diag", false, "print the header in CBOR diagnostic notation")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("info takes one container file, got %d arguments", len(args))
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			header, err := fluxstore.ReadHeader(f)
			if err != nil {
				return err
			}

			if diag {
				snapshot, err := codec.Marshal(header)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(snapshot)
				if err != nil {
					return err
				}
				fmt.Println(notation)
				return nil
			}

			if emitted, err := jsonOut.EmitJSON(infoFromHeader(header)); emitted || err != nil {
				return err
			}
			printInfo(os.Stdout, header)
			return nil
		},
	}
}

func infoFromHeader(h *fluxstore.Header) infoResult {
	id := h.CaptureID()
	res := infoResult{
		ID:          flux.FormatID(id),
		Ref:         flux.FormatRef(id),
		Encoding:    h.Encoding.String(),
		Cylinder:    h.Cylinder,
		Head:        h.Head,
		SampleRate:  h.SampleRate,
		Source:      h.Source,
		Revolutions: h.Revolutions,
		Metadata:    h.Metadata,
	}
	if !h.CapturedAt.IsZero() {
		res.CapturedAt = h.CapturedAt.UTC().Format(time.RFC3339)
	}
	for _, entry := range h.Chunks {
		res.Chunks = append(res.Chunks, chunkResult{
			Revolution:  entry.Revolution,
			Section:     string(entry.Section),
			Compression: entry.Compression.String(),
			Stored:      entry.CompressedSize,
			Size:        entry.UncompressedSize,
		})
	}
	return res
}

func printInfo(w io.Writer, h *fluxstore.Header) {
	id := h.CaptureID()
	fmt.Fprintf(w, "capture:     %s (%s)\n", flux.FormatRef(id), flux.FormatID(id))
	fmt.Fprintf(w, "encoding:    %s\n", h.Encoding)
	fmt.Fprintf(w, "position:    cylinder %d, head %d\n", h.Cylinder, h.Head)
	if h.SampleRate > 0 {
		fmt.Fprintf(w, "sample rate: %.0f Hz\n", h.SampleRate)
	}
	if h.Source != "" {
		fmt.Fprintf(w, "source:      %s\n", h.Source)
	}
	if !h.CapturedAt.IsZero() {
		fmt.Fprintf(w, "captured:    %s\n", h.CapturedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "revolutions: %d\n", h.Revolutions)
	for _, key := range slices.Sorted(maps.Keys(h.Metadata)) {
		fmt.Fprintf(w, "meta:        %s=%s\n", key, h.Metadata[key])
	}

	if len(h.Chunks) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "REV\tSECTION\tCOMPRESSION\tSTORED\tSIZE\n")
	for _, entry := range h.Chunks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
			entry.Revolution, entry.Section, entry.Compression,
			entry.CompressedSize, entry.UncompressedSize)
	}
	tw.Flush()
}
