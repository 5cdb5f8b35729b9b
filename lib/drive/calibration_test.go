// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package drive

import (
	"math"
	"testing"

	"github.com/bureau-foundation/fluxkit/lib/testutil"
)

func TestNewCalibrationDefaults(t *testing.T) {
	c := NewCalibration()
	for drive := 0; drive < NumSlots; drive++ {
		slot, err := c.Slot(drive)
		if err != nil {
			t.Fatalf("Slot(%d): %v", drive, err)
		}
		if slot.TrackLength != 12500 {
			t.Errorf("slot %d TrackLength = %d, want 12500", drive, slot.TrackLength)
		}
		if slot.RPM != 300 {
			t.Errorf("slot %d RPM = %v, want 300", drive, slot.RPM)
		}
		if slot.OffsetBytes != 0 || slot.Calibrated {
			t.Errorf("slot %d = %+v, want uncalibrated defaults", drive, slot)
		}
	}
}

func TestCalibrateStoresSlot(t *testing.T) {
	c := NewCalibration()
	if err := c.Calibrate(2, 12600, 297.6); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	slot, err := c.Slot(2)
	if err != nil {
		t.Fatalf("Slot: %v", err)
	}
	if slot.TrackLength != 12600 {
		t.Errorf("TrackLength = %d, want 12600", slot.TrackLength)
	}
	if slot.RPM != 297.6 {
		t.Errorf("RPM = %v, want 297.6", slot.RPM)
	}
	if slot.OffsetBytes != 100 {
		t.Errorf("OffsetBytes = %d, want 100", slot.OffsetBytes)
	}
	if !slot.Calibrated {
		t.Error("Calibrated = false, want true")
	}

	// Other slots keep their defaults.
	other, _ := c.Slot(0)
	if other.Calibrated {
		t.Error("slot 0 became calibrated")
	}
}

func TestCalibrateRejectsBadInput(t *testing.T) {
	c := NewCalibration()
	if err := c.Calibrate(-1, 12500, 300); err == nil {
		t.Error("negative slot accepted")
	}
	if err := c.Calibrate(NumSlots, 12500, 300); err == nil {
		t.Error("out-of-range slot accepted")
	}
	if err := c.Calibrate(0, 0, 300); err == nil {
		t.Error("zero track length accepted")
	}
	if _, err := c.Slot(NumSlots); err == nil {
		t.Error("out-of-range Slot accepted")
	}
}

func TestCalibrateFromTrack(t *testing.T) {
	trackData := testutil.Track(testutil.TrackSpec{
		Length:  12300,
		Pattern: 0x4489,
		Sectors: testutil.SequentialSectors(9, 2),
	})

	c := NewCalibration()
	if err := c.CalibrateFromTrack(1, trackData); err != nil {
		t.Fatalf("CalibrateFromTrack: %v", err)
	}

	slot, _ := c.Slot(1)
	if slot.TrackLength != 12300 {
		t.Errorf("TrackLength = %d, want 12300", slot.TrackLength)
	}
	if slot.OffsetBytes != -200 {
		t.Errorf("OffsetBytes = %d, want -200", slot.OffsetBytes)
	}
	// 12300 bytes at 62.5 bytes/ms is 196.8ms per revolution.
	if math.Abs(slot.RPM-304.878) > 0.001 {
		t.Errorf("RPM = %v, want about 304.878", slot.RPM)
	}
	if !slot.Calibrated {
		t.Error("Calibrated = false, want true")
	}
}

func TestCalibrateFromTrackRejectsImplausibleRead(t *testing.T) {
	c := NewCalibration()

	// 500 data bytes is far below the minimum plausible track.
	buffer := make([]byte, 5000)
	for i := 0; i < 500; i++ {
		buffer[i] = 0x4E
	}
	if err := c.CalibrateFromTrack(0, buffer); err == nil {
		t.Error("implausible track accepted")
	}
	if err := c.CalibrateFromTrack(0, make([]byte, 2)); err == nil {
		t.Error("undersized buffer accepted")
	}

	slot, _ := c.Slot(0)
	if slot.Calibrated {
		t.Error("failed calibration marked the slot calibrated")
	}
}

func TestWriteLength(t *testing.T) {
	c := NewCalibration()
	if err := c.Calibrate(0, 12600, 297.6); err != nil {
		t.Fatal(err)
	}
	if err := c.Calibrate(1, 12400, 302.4); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		src, tgt int
		offset   int
		want     int
	}{
		{"shorter drive bounds the copy", 0, 1, 0, 12368},
		{"positive offset extends", 0, 1, 100, 12468},
		{"negative offset shrinks", 0, 1, -100, 12268},
		{"symmetric in direction", 1, 0, 0, 12368},
		{"uncalibrated slots use defaults", 2, 3, 0, 12468},
		{"clamped at zero", 0, 1, -20000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.WriteLength(tt.src, tt.tgt, tt.offset)
			if err != nil {
				t.Fatalf("WriteLength: %v", err)
			}
			if got != tt.want {
				t.Errorf("WriteLength(%d, %d, %d) = %d, want %d",
					tt.src, tt.tgt, tt.offset, got, tt.want)
			}
		})
	}
}

func TestWriteLengthRejectsBadSlots(t *testing.T) {
	c := NewCalibration()
	if _, err := c.WriteLength(-1, 0, 0); err == nil {
		t.Error("negative source slot accepted")
	}
	if _, err := c.WriteLength(0, NumSlots, 0); err == nil {
		t.Error("out-of-range target slot accepted")
	}
}
