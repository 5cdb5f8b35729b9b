// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package flux

import (
	"fmt"
	"time"
)

// Revolution holds one full rotation's worth of track data. A
// revolution carries flux intervals (straight off a sampler), decoded
// bytes (after clock recovery), or both. At least one must be
// present for the revolution to mean anything.
type Revolution struct {
	// Flux is the sequence of flux-transition intervals in sample
	// ticks. Nil for revolutions that only exist as decoded bytes
	// (sector images converted into a capture).
	Flux []int32 `cbor:"flux,omitempty"`

	// Data is the decoded byte stream. Nil for raw flux captures
	// that have not been through clock recovery yet.
	Data []byte `cbor:"data,omitempty"`
}

// Empty reports whether the revolution carries neither flux nor data.
func (r *Revolution) Empty() bool {
	return len(r.Flux) == 0 && len(r.Data) == 0
}

// Capture is everything read from one track position: one or more
// revolutions plus the sampling context needed to interpret them.
type Capture struct {
	// SampleRate is the flux sampler's tick rate in Hz. Zero for
	// captures built from decoded bytes only.
	SampleRate float64 `cbor:"sample_rate,omitempty"`

	// Encoding is the magnetic encoding the track is expected to use.
	Encoding Encoding `cbor:"encoding"`

	// Cylinder and Head give the physical track position.
	Cylinder int `cbor:"cylinder"`
	Head     int `cbor:"head"`

	// Source describes where the capture came from: a device name, an
	// imported file path, a converter. Free-form.
	Source string `cbor:"source,omitempty"`

	// CapturedAt is when the capture was taken. Set through an
	// injected clock so tests get stable timestamps.
	CapturedAt time.Time `cbor:"captured_at,omitempty"`

	// Metadata carries free-form annotations (drive serial, media
	// brand, operator notes).
	Metadata map[string]string `cbor:"metadata,omitempty"`

	// Revolutions are the individual rotations, in read order.
	Revolutions []Revolution `cbor:"revolutions"`
}

// Validate checks structural soundness: at least one revolution, no
// empty revolutions, and a sample rate whenever flux data is present.
func (c *Capture) Validate() error {
	if len(c.Revolutions) == 0 {
		return fmt.Errorf("capture has no revolutions")
	}
	for i, rev := range c.Revolutions {
		if rev.Empty() {
			return fmt.Errorf("revolution %d is empty", i)
		}
		if len(rev.Flux) > 0 && c.SampleRate <= 0 {
			return fmt.Errorf("revolution %d has flux data but capture has no sample rate", i)
		}
	}
	return nil
}

// DataRevolutions returns the decoded byte buffers of all revolutions
// that have them, in order. Track measurement, merge, and weak-bit
// detection all operate on this view.
func (c *Capture) DataRevolutions() [][]byte {
	var revs [][]byte
	for _, rev := range c.Revolutions {
		if len(rev.Data) > 0 {
			revs = append(revs, rev.Data)
		}
	}
	return revs
}
