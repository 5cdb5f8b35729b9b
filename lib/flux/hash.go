// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package flux

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// ID is a 32-byte BLAKE3 digest identifying capture content. The
// container format stores per-revolution IDs for integrity checks and
// the catalog keys entries by capture ID for deduplication.
type ID [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same input bytes produce different hashes in
// different contexts. The byte values are the ASCII encoding of the
// domain name, zero-padded to 32 bytes, so the keys are inspectable
// in hex dumps without sacrificing any property of keyed hashing.
type domainKey [32]byte

var (
	revolutionDomainKey = domainKey{
		'f', 'l', 'u', 'x', 'k', 'i', 't', '.', 'c', 'a', 'p', 't', 'u', 'r', 'e', '.',
		'r', 'e', 'v', 'o', 'l', 'u', 't', 'i', 'o', 'n', 0, 0, 0, 0, 0, 0,
	}

	captureDomainKey = domainKey{
		'f', 'l', 'u', 'x', 'k', 'i', 't', '.', 'c', 'a', 'p', 't', 'u', 'r', 'e', '.',
		'f', 'i', 'l', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// ContentID computes the revolution-domain hash of a revolution's
// content. Flux and data sections are length-framed so a revolution
// with flux [1,2] and empty data never collides with one whose data
// happens to serialize the same bytes.
func (r *Revolution) ContentID() ID {
	hasher, err := blake3.NewKeyed(revolutionDomainKey[:])
	if err != nil {
		panic("flux: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	var frame [8]byte
	binary.LittleEndian.PutUint64(frame[:], uint64(len(r.Flux)))
	hasher.Write(frame[:])
	var tick [4]byte
	for _, interval := range r.Flux {
		binary.LittleEndian.PutUint32(tick[:], uint32(interval))
		hasher.Write(tick[:])
	}

	binary.LittleEndian.PutUint64(frame[:], uint64(len(r.Data)))
	hasher.Write(frame[:])
	hasher.Write(r.Data)

	var id ID
	copy(id[:], hasher.Sum(nil))
	return id
}

// ContentID computes the capture-domain hash: a pairwise fold over
// the revolution IDs, then a capture-domain keyed hash of the root.
// Single-revolution captures promote the revolution hash directly.
// When a level has an odd node it is promoted without rehashing —
// duplicating it would let a prefix capture collide with its
// extension.
func (c *Capture) ContentID() ID {
	if len(c.Revolutions) == 0 {
		return keyedHash(captureDomainKey, nil)
	}

	level := make([]ID, len(c.Revolutions))
	for i := range c.Revolutions {
		level[i] = c.Revolutions[i].ContentID()
	}

	for len(level) > 1 {
		next := make([]ID, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			var combined [64]byte
			copy(combined[:32], level[i][:])
			copy(combined[32:], level[i+1][:])
			next = append(next, keyedHash(revolutionDomainKey, combined[:]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}

	return keyedHash(captureDomainKey, level[0][:])
}

// FormatID returns the hex string form of an ID, the canonical format
// for catalog keys, logs, and CLI output.
func FormatID(id ID) string {
	return hex.EncodeToString(id[:])
}

// ParseID parses a 64-character hex string into an ID.
func ParseID(hexString string) (ID, error) {
	var id ID
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return id, fmt.Errorf("parsing capture ID: %w", err)
	}
	if len(decoded) != 32 {
		return id, fmt.Errorf("capture ID is %d bytes, want 32", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// FormatRef returns the short capture reference: the "cap-" prefix
// followed by the first 12 hex characters.
func FormatRef(id ID) string {
	return "cap-" + hex.EncodeToString(id[:6])
}

// keyedHash computes a BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) ID {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("flux: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var id ID
	copy(id[:], hasher.Sum(nil))
	return id
}
