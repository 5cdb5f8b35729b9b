// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package drive tracks per-drive calibration and picks copy
// strategies. Physical drives spin at slightly different speeds, so a
// track read on one drive may not fit when written on another; the
// calibration slots record each drive's measured track length and the
// write-length calculation leaves a safety margin for the difference.
package drive

import (
	"fmt"

	"github.com/bureau-foundation/fluxkit/lib/track"
)

// NumSlots is the number of drive slots, matching the four-drive bus
// of the classic controllers.
const NumSlots = 4

// writeMargin is subtracted from every write length to absorb
// mechanical speed variation between drives.
const writeMargin = 32

// Slot is the calibration state of one drive.
type Slot struct {
	// TrackLength is the measured usable track length in bytes.
	TrackLength int

	// RPM is the rotation speed implied by TrackLength at the
	// double-density data rate.
	RPM float64

	// OffsetBytes is TrackLength relative to the 12500-byte
	// reference track.
	OffsetBytes int

	// Calibrated is false while the slot still holds defaults.
	Calibrated bool
}

// Calibration holds the calibration slots for all drives.
type Calibration struct {
	slots [NumSlots]Slot
}

// NewCalibration returns slots initialized to the nominal MFM DD
// geometry: 12500 bytes per track at 300 RPM.
func NewCalibration() *Calibration {
	c := &Calibration{}
	for i := range c.slots {
		c.slots[i] = Slot{
			TrackLength: track.ReferenceTrackBytes,
			RPM:         300,
		}
	}
	return c
}

// Slot returns the calibration state of one drive.
func (c *Calibration) Slot(drive int) (Slot, error) {
	if drive < 0 || drive >= NumSlots {
		return Slot{}, fmt.Errorf("drive: slot %d out of range 0-%d", drive, NumSlots-1)
	}
	return c.slots[drive], nil
}

// Calibrate stores a measured track length and speed for a drive.
func (c *Calibration) Calibrate(drive, lengthBytes int, rpm float64) error {
	if drive < 0 || drive >= NumSlots {
		return fmt.Errorf("drive: slot %d out of range 0-%d", drive, NumSlots-1)
	}
	if lengthBytes <= 0 {
		return fmt.Errorf("drive: track length %d must be positive", lengthBytes)
	}
	c.slots[drive] = Slot{
		TrackLength: lengthBytes,
		RPM:         rpm,
		OffsetBytes: lengthBytes - track.ReferenceTrackBytes,
		Calibrated:  true,
	}
	return nil
}

// CalibrateFromTrack measures a raw track read and calibrates the
// drive from it. Fails when the read does not contain a plausible
// track.
func (c *Calibration) CalibrateFromTrack(drive int, trackData []byte) error {
	m, err := track.Measure(trackData)
	if err != nil {
		return err
	}
	if !m.Valid {
		return fmt.Errorf("drive: measured track length %d is not plausible", m.LengthBytes)
	}

	// 62.5 bytes per millisecond at 250 kbit/s.
	timeMS := float64(m.LengthBytes) / 62.5
	return c.Calibrate(drive, m.LengthBytes, 60000/timeMS)
}

// WriteLength is the number of bytes that can be safely written when
// copying from one drive to another: the shorter of the two measured
// track lengths, adjusted by the caller's offset, minus a 32-byte
// margin for speed variation. Never negative.
func (c *Calibration) WriteLength(src, tgt, offset int) (int, error) {
	srcSlot, err := c.Slot(src)
	if err != nil {
		return 0, err
	}
	tgtSlot, err := c.Slot(tgt)
	if err != nil {
		return 0, err
	}

	length := min(srcSlot.TrackLength, tgtSlot.TrackLength) + offset - writeMargin
	return max(length, 0), nil
}
