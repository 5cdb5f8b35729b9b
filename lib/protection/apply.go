// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import "fmt"

// writableKinds are artifact kinds a plain track write reproduces:
// weak bits via mask randomization, length and sync anomalies by
// writing the recorded bytes verbatim. The rest need hardware the
// write path does not drive (half stepping, per-bit timing, CRC
// forcing).
const writableKinds = WeakBits | LongTrack | ShortTrack | SyncPattern | GapLength

// WriteApplication is the write plan for one track of a protection
// map.
type WriteApplication struct {
	// WeakMask marks the bits to re-randomize on each write pass,
	// nil when the track has no weak bits. The slice is a copy
	// bounded to the caller's track buffer size.
	WeakMask []byte

	// Applied is the artifact kinds the plan honors; Unsupported is
	// the kinds present on the track that a plain write cannot
	// reproduce. Callers decide whether losing those is acceptable
	// for their target.
	Applied     ArtifactKind
	Unsupported ArtifactKind
}

// ApplyToWrite assembles the write plan for one track. trackBytes is
// the caller's write buffer size and bounds the weak mask.
func (m *Map) ApplyToWrite(cylinder, head, trackBytes int) (WriteApplication, error) {
	if trackBytes <= 0 {
		return WriteApplication{}, fmt.Errorf("protection: track buffer of %d bytes", trackBytes)
	}
	t, err := m.Track(cylinder, head)
	if err != nil {
		return WriteApplication{}, err
	}

	app := WriteApplication{
		Applied:     t.Kinds & writableKinds,
		Unsupported: t.Kinds &^ writableKinds,
	}
	if mask := t.WeakMask(); mask != nil {
		if len(mask) > trackBytes {
			mask = mask[:trackBytes]
		}
		app.WeakMask = append([]byte(nil), mask...)
	}
	return app, nil
}
