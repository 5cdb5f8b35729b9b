// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package geometry describes disk layouts and infers them from image
// file sizes. Inference is a fallback for bare sector images;
// authoritative geometry comes from format parsers upstream, so every
// guessed layout is marked Heuristic.
package geometry

import (
	"fmt"

	"github.com/bureau-foundation/fluxkit/lib/flux"
)

// DefaultTrackBytes is the per-track byte guess for unrecognized
// image sizes, roughly one MFM DD track.
const DefaultTrackBytes = 6250

// MaxCylinders caps inferred cylinder counts; no floppy mechanism
// seeks past track 83.
const MaxCylinders = 84

// Geometry is one disk layout.
type Geometry struct {
	Cylinders int
	Heads     int

	// SectorsPerTrack and SectorSize describe the payload layout.
	// Zero when unknown or zone-variable (C64 GCR).
	SectorsPerTrack int
	SectorSize      int

	// TrackBytes is the stride of one track inside a flat sector
	// image.
	TrackBytes int

	Encoding flux.Encoding

	// Heuristic marks geometry guessed from file size alone rather
	// than parsed from a format header.
	Heuristic bool
}

// Tracks is the number of track slots on the disk.
func (g Geometry) Tracks() int {
	return g.Cylinders * g.Heads
}

// TotalBytes is the image size implied by the layout.
func (g Geometry) TotalBytes() int {
	return g.Tracks() * g.TrackBytes
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%dx%d %s", g.Cylinders, g.Heads,
		g.SectorsPerTrack, g.SectorSize, g.Encoding)
}

// Validate rejects layouts that cannot address any data.
func (g Geometry) Validate() error {
	if g.Cylinders <= 0 {
		return fmt.Errorf("geometry: %d cylinders", g.Cylinders)
	}
	if g.Cylinders > MaxCylinders {
		return fmt.Errorf("geometry: %d cylinders exceeds %d", g.Cylinders, MaxCylinders)
	}
	if g.Heads != 1 && g.Heads != 2 {
		return fmt.Errorf("geometry: %d heads", g.Heads)
	}
	if g.TrackBytes <= 0 {
		return fmt.Errorf("geometry: track stride %d", g.TrackBytes)
	}
	return nil
}

// ExpectedTrackBits is the raw bit count one nominal revolution
// should decode to, for long/short track checks. nominalTrackBytes is
// the platform profile's raw track length and takes precedence; with
// no profile the payload layout is scaled by the encoding overhead
// (MFM and FM carry a clock cell per data bit, GCR maps 8 data bits
// to 10 cells). Gap bytes make the fallback a floor, not an exact
// figure.
func (g Geometry) ExpectedTrackBits(nominalTrackBytes int) int {
	if nominalTrackBytes > 0 {
		return nominalTrackBytes * 8
	}

	raw := g.TrackBytes
	if g.Encoding == flux.GCR {
		raw = raw * 10 / 8
	} else {
		raw *= 2
	}
	return raw * 8
}

// InferFromSize guesses a disk layout from an image file size. Exact
// sizes of the common formats are recognized; anything else is carved
// into DefaultTrackBytes tracks and flagged Heuristic.
func InferFromSize(size int) (Geometry, error) {
	if size <= 0 {
		return Geometry{}, fmt.Errorf("geometry: image size %d", size)
	}

	switch size {
	case 901120: // Amiga ADF
		return Geometry{
			Cylinders:       80,
			Heads:           2,
			SectorsPerTrack: 11,
			SectorSize:      512,
			TrackBytes:      11 * 512,
			Encoding:        flux.MFM,
		}, nil
	case 174848, 175531: // C64 D64, without and with error bytes
		return Geometry{
			Cylinders:  35,
			Heads:      1,
			SectorSize: 256,
			TrackBytes: size / 35,
			Encoding:   flux.GCR,
		}, nil
	case 737280: // 720K PC/Atari ST image
		return Geometry{
			Cylinders:       80,
			Heads:           2,
			SectorsPerTrack: 9,
			SectorSize:      512,
			TrackBytes:      9 * 512,
			Encoding:        flux.MFM,
		}, nil
	case 1474560: // 1.44M PC image
		return Geometry{
			Cylinders:       80,
			Heads:           2,
			SectorsPerTrack: 18,
			SectorSize:      512,
			TrackBytes:      18 * 512,
			Encoding:        flux.MFM,
		}, nil
	}

	cylinders := size / (DefaultTrackBytes * 2)
	if cylinders > MaxCylinders {
		cylinders = MaxCylinders
	}
	if cylinders < 1 {
		cylinders = 1
	}
	return Geometry{
		Cylinders:  cylinders,
		Heads:      2,
		TrackBytes: DefaultTrackBytes,
		Encoding:   flux.MFM,
		Heuristic:  true,
	}, nil
}
