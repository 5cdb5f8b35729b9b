// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
	"github.com/bureau-foundation/fluxkit/lib/track"
)

// readInput loads decoded track bytes from path. Flux containers
// contribute their first decoded revolution; any other file is read
// whole as a raw track dump. The returned encoding is the container's,
// or MFM for raw files.
func readInput(path string) ([]byte, flux.Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if !fluxstore.IsContainer(data) {
		return data, flux.MFM, nil
	}

	capture, err := fluxstore.Read(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	revs := capture.DataRevolutions()
	if len(revs) == 0 {
		return nil, 0, fmt.Errorf("%s has no decoded revolutions; run \"fluxkit decode\" first", path)
	}
	return revs[0], capture.Encoding, nil
}

// multiRevFromCapture carves the capture's decoded revolutions into a
// MultiRev. A single decoded revolution is treated as one long read
// holding several rotations end to end and split at the measured
// track length.
func multiRevFromCapture(capture *flux.Capture) (*track.MultiRev, error) {
	revs := capture.DataRevolutions()
	if len(revs) == 0 {
		return nil, fmt.Errorf("capture has no decoded revolutions; run \"fluxkit decode\" first")
	}
	if len(revs) == 1 {
		meas, err := track.Measure(revs[0])
		if err != nil {
			return nil, err
		}
		if !meas.Valid {
			return nil, fmt.Errorf("single revolution does not look like track data (%d bytes)", meas.LengthBytes)
		}
		return track.Split(revs[0], meas.LengthBytes)
	}
	return track.FromRevolutions(revs)
}

// parseSyncWord parses a sync pattern flag value. Base prefixes are
// honored, so 0x4489 is the standard MFM mark. An empty string falls
// back to the encoding's own pattern.
func parseSyncWord(s string, encoding flux.Encoding) (uint16, error) {
	if s == "" {
		return encoding.SyncPattern(), nil
	}
	value, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad sync pattern %q: %w", s, err)
	}
	return uint16(value), nil
}
