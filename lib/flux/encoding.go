// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package flux

import "fmt"

// Encoding identifies a self-clocking magnetic encoding scheme. The
// encoding determines the nominal bit-cell width the clock recovery
// starts from and how decoded bit streams split into clock and data
// bits.
type Encoding uint8

const (
	// MFM is Modified Frequency Modulation: double density and high
	// density PC/Amiga/Atari disks. 2 µs nominal bit cell at double
	// density.
	MFM Encoding = iota

	// FM is the original single-density IBM encoding. 4 µs nominal
	// bit cell.
	FM

	// GCR is Group Code Recording as used by Commodore and Apple
	// drives. 3.2 µs nominal bit cell (Commodore zone 1 reference).
	GCR
)

// CellNanoseconds returns the encoding's nominal bit-cell width.
func (e Encoding) CellNanoseconds() float64 {
	switch e {
	case FM:
		return 4000
	case GCR:
		return 3200
	default:
		return 2000
	}
}

// BitCell returns the nominal bit-cell width in sample ticks for a
// capture device running at sampleRate Hz. MFM at 4 MHz is 8.0
// samples.
func (e Encoding) BitCell(sampleRate float64) float64 {
	return e.CellNanoseconds() / 1e9 * sampleRate
}

// SyncPattern returns the encoding's default 16-bit sync word: 0x4489
// for MFM (the A1 mark with a missing clock bit), 0xF57E for FM (the
// FE address mark with clock C7), and all-ones for GCR where sync is
// a run of set bits rather than a distinguished word.
func (e Encoding) SyncPattern() uint16 {
	switch e {
	case FM:
		return 0xF57E
	case GCR:
		return 0xFFFF
	default:
		return 0x4489
	}
}

// String returns the lowercase encoding name.
func (e Encoding) String() string {
	switch e {
	case MFM:
		return "mfm"
	case FM:
		return "fm"
	case GCR:
		return "gcr"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// ParseEncoding parses an encoding name. Case-sensitive, lowercase;
// this is a machine format (config files, container headers), not a
// user-facing prompt.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "mfm":
		return MFM, nil
	case "fm":
		return FM, nil
	case "gcr":
		return GCR, nil
	default:
		return 0, fmt.Errorf("unknown encoding: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so encodings
// serialize as their names in CBOR, JSON, and YAML.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
