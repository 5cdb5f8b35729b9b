// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package fluxstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/fluxkit/lib/codec"
	"github.com/bureau-foundation/fluxkit/lib/flux"
)

const (
	// magicPrefix is the first seven magic bytes; the eighth is the
	// format version digit.
	magicPrefix      = "FLUXCAP"
	containerVersion = '1'

	// maxHeaderBytes bounds the CBOR header so a corrupt length
	// prefix cannot demand an absurd allocation. Real headers are a
	// few hundred bytes.
	maxHeaderBytes = 1 << 20
)

// containerMagic is the 8-byte container file signature.
var containerMagic = [8]byte{'F', 'L', 'U', 'X', 'C', 'A', 'P', containerVersion}

// IsContainer reports whether data starts with the container
// signature. Any version digit matches; Read rejects versions it
// does not speak.
func IsContainer(data []byte) bool {
	return len(data) >= len(magicPrefix) && string(data[:len(magicPrefix)]) == magicPrefix
}

// chunkDomainKey keys the per-chunk BLAKE3 hash, following the
// domain-separation convention of lib/flux: the ASCII domain name
// zero-padded to 32 bytes.
var chunkDomainKey = [32]byte{
	'f', 'l', 'u', 'x', 'k', 'i', 't', '.', 'c', 'o', 'n', 't', 'a', 'i', 'n', 'e',
	'r', '.', 'c', 'h', 'u', 'n', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Section names which part of a revolution a chunk stores.
type Section string

const (
	// SectionFlux holds flux-transition intervals, serialized as
	// little-endian 32-bit words.
	SectionFlux Section = "flux"

	// SectionData holds the decoded byte stream.
	SectionData Section = "data"
)

// ChunkEntry is one chunk directory entry. Chunks follow the header
// in directory order.
type ChunkEntry struct {
	// Revolution indexes into the capture's revolutions.
	Revolution int `cbor:"revolution"`

	Section     Section        `cbor:"section"`
	Compression CompressionTag `cbor:"compression"`

	// CompressedSize is the stored byte length, UncompressedSize the
	// original. Both bound chunk reads so a truncated file fails
	// before decompression.
	CompressedSize   uint32 `cbor:"compressed_size"`
	UncompressedSize uint32 `cbor:"uncompressed_size"`

	// Hash is the chunk-domain BLAKE3 hash of the uncompressed
	// chunk bytes.
	Hash []byte `cbor:"hash"`
}

// Header is the container's CBOR metadata block: the capture's
// sampling context plus the chunk directory.
type Header struct {
	SampleRate float64           `cbor:"sample_rate,omitempty"`
	Encoding   flux.Encoding     `cbor:"encoding"`
	Cylinder   int               `cbor:"cylinder"`
	Head       int               `cbor:"head"`
	Source     string            `cbor:"source,omitempty"`
	CapturedAt time.Time         `cbor:"captured_at,omitempty"`
	Metadata   map[string]string `cbor:"metadata,omitempty"`

	// ContentID is the capture-domain content hash of the stored
	// capture, so catalog ingest can key a container without
	// unpacking it. Read verifies it against the extracted content.
	ContentID []byte `cbor:"content_id"`

	// Revolutions is the revolution count; directory entries index
	// into it.
	Revolutions int `cbor:"revolutions"`

	Chunks []ChunkEntry `cbor:"chunks"`
}

// CaptureID returns the stored capture content ID. Only valid on
// headers that passed validation, i.e. anything ReadHeader returns.
func (h *Header) CaptureID() flux.ID {
	var id flux.ID
	copy(id[:], h.ContentID)
	return id
}

type chunkKey struct {
	revolution int
	section    Section
}

func (h *Header) validate() error {
	if h.Revolutions < 1 {
		return fmt.Errorf("header declares %d revolutions", h.Revolutions)
	}
	if len(h.Chunks) == 0 {
		return fmt.Errorf("header has no chunks")
	}
	if len(h.ContentID) != 32 {
		return fmt.Errorf("header content ID is %d bytes, want 32", len(h.ContentID))
	}

	seen := make(map[chunkKey]bool, len(h.Chunks))
	for i := range h.Chunks {
		entry := &h.Chunks[i]
		if entry.Revolution < 0 || entry.Revolution >= h.Revolutions {
			return fmt.Errorf("chunk %d references revolution %d of %d",
				i, entry.Revolution, h.Revolutions)
		}
		if entry.Section != SectionFlux && entry.Section != SectionData {
			return fmt.Errorf("chunk %d has unknown section %q", i, entry.Section)
		}
		if entry.Compression > CompressionZstd {
			return fmt.Errorf("chunk %d has unsupported compression tag %d", i, entry.Compression)
		}
		if len(entry.Hash) != 32 {
			return fmt.Errorf("chunk %d hash is %d bytes, want 32", i, len(entry.Hash))
		}
		key := chunkKey{entry.Revolution, entry.Section}
		if seen[key] {
			return fmt.Errorf("chunk %d duplicates revolution %d section %s",
				i, entry.Revolution, entry.Section)
		}
		seen[key] = true
	}
	return nil
}

// chunkHash computes the chunk-domain BLAKE3 hash of uncompressed
// chunk bytes.
func chunkHash(data []byte) [32]byte {
	hasher, err := blake3.NewKeyed(chunkDomainKey[:])
	if err != nil {
		panic("fluxstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// fluxBytes serializes flux intervals as little-endian 32-bit words,
// the same framing the revolution content hash uses.
func fluxBytes(intervals []int32) []byte {
	out := make([]byte, 4*len(intervals))
	for i, interval := range intervals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(interval))
	}
	return out
}

func fluxFromBytes(data []byte) ([]int32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("flux chunk of %d bytes is not a whole number of intervals", len(data))
	}
	intervals := make([]int32, len(data)/4)
	for i := range intervals {
		intervals[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return intervals, nil
}

// buildChunk compresses one section and fills its directory entry.
func buildChunk(revolution int, section Section, raw []byte, tag CompressionTag) (ChunkEntry, []byte, error) {
	if uint64(len(raw)) > math.MaxUint32 {
		return ChunkEntry{}, nil, fmt.Errorf("fluxstore: revolution %d %s chunk of %d bytes exceeds the container limit",
			revolution, section, len(raw))
	}
	stored, used, err := compressAuto(raw, tag)
	if err != nil {
		return ChunkEntry{}, nil, fmt.Errorf("fluxstore: compressing revolution %d %s chunk: %w",
			revolution, section, err)
	}
	hash := chunkHash(raw)
	return ChunkEntry{
		Revolution:       revolution,
		Section:          section,
		Compression:      used,
		CompressedSize:   uint32(len(stored)),
		UncompressedSize: uint32(len(raw)),
		Hash:             hash[:],
	}, stored, nil
}

// Write serializes capture to w in container form. Flux chunks
// default to zstd; data chunks are probed per selectCompression.
func Write(w io.Writer, capture *flux.Capture) error {
	if capture == nil {
		return fmt.Errorf("fluxstore: nil capture")
	}
	if err := capture.Validate(); err != nil {
		return fmt.Errorf("fluxstore: %w", err)
	}

	header := Header{
		SampleRate:  capture.SampleRate,
		Encoding:    capture.Encoding,
		Cylinder:    capture.Cylinder,
		Head:        capture.Head,
		Source:      capture.Source,
		CapturedAt:  capture.CapturedAt,
		Metadata:    capture.Metadata,
		Revolutions: len(capture.Revolutions),
	}
	id := capture.ContentID()
	header.ContentID = id[:]

	var chunks [][]byte
	for i := range capture.Revolutions {
		rev := &capture.Revolutions[i]
		if len(rev.Flux) > 0 {
			entry, stored, err := buildChunk(i, SectionFlux, fluxBytes(rev.Flux), CompressionZstd)
			if err != nil {
				return err
			}
			header.Chunks = append(header.Chunks, entry)
			chunks = append(chunks, stored)
		}
		if len(rev.Data) > 0 {
			entry, stored, err := buildChunk(i, SectionData, rev.Data, selectCompression(rev.Data))
			if err != nil {
				return err
			}
			header.Chunks = append(header.Chunks, entry)
			chunks = append(chunks, stored)
		}
	}

	headerBytes, err := codec.Marshal(&header)
	if err != nil {
		return fmt.Errorf("fluxstore: encoding header: %w", err)
	}
	if len(headerBytes) > maxHeaderBytes {
		return fmt.Errorf("fluxstore: header of %d bytes exceeds the %d limit", len(headerBytes), maxHeaderBytes)
	}

	if _, err := w.Write(containerMagic[:]); err != nil {
		return fmt.Errorf("fluxstore: writing magic: %w", err)
	}
	var lengthBytes [4]byte
	binary.LittleEndian.PutUint32(lengthBytes[:], uint32(len(headerBytes)))
	if _, err := w.Write(lengthBytes[:]); err != nil {
		return fmt.Errorf("fluxstore: writing header length: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("fluxstore: writing header: %w", err)
	}
	for i, chunk := range chunks {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("fluxstore: writing chunk %d: %w", i, err)
		}
	}
	return nil
}

// ReadHeader reads and validates the container header, leaving r
// positioned at the first chunk. "fluxkit capture info" and catalog
// ingest use this to describe a container without extracting it.
func ReadHeader(r io.Reader) (*Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("fluxstore: reading magic: %w", err)
	}
	if magic != containerMagic {
		if string(magic[:7]) == magicPrefix {
			return nil, fmt.Errorf("fluxstore: container version %q is not supported", magic[7])
		}
		return nil, fmt.Errorf("fluxstore: not a capture container")
	}

	var lengthBytes [4]byte
	if _, err := io.ReadFull(r, lengthBytes[:]); err != nil {
		return nil, fmt.Errorf("fluxstore: reading header length: %w", err)
	}
	headerLen := binary.LittleEndian.Uint32(lengthBytes[:])
	if headerLen == 0 || headerLen > maxHeaderBytes {
		return nil, fmt.Errorf("fluxstore: header length %d outside 1-%d", headerLen, maxHeaderBytes)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("fluxstore: reading header: %w", err)
	}
	var header Header
	if err := codec.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("fluxstore: decoding header: %w", err)
	}
	if err := header.validate(); err != nil {
		return nil, fmt.Errorf("fluxstore: %w", err)
	}
	return &header, nil
}

// Read parses a container and reassembles the capture. Every chunk's
// size and content hash is verified, as is the capture content ID;
// any mismatch means the file is corrupt.
func Read(r io.Reader) (*flux.Capture, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	capture := &flux.Capture{
		SampleRate:  header.SampleRate,
		Encoding:    header.Encoding,
		Cylinder:    header.Cylinder,
		Head:        header.Head,
		Source:      header.Source,
		CapturedAt:  header.CapturedAt,
		Metadata:    header.Metadata,
		Revolutions: make([]flux.Revolution, header.Revolutions),
	}

	for i := range header.Chunks {
		entry := &header.Chunks[i]
		stored := make([]byte, entry.CompressedSize)
		if _, err := io.ReadFull(r, stored); err != nil {
			return nil, fmt.Errorf("fluxstore: reading chunk %d (%d bytes): %w",
				i, entry.CompressedSize, err)
		}

		raw, err := decompressChunk(stored, entry.Compression, int(entry.UncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("fluxstore: chunk %d: %w", i, err)
		}
		if hash := chunkHash(raw); !bytes.Equal(hash[:], entry.Hash) {
			return nil, fmt.Errorf("fluxstore: chunk %d content hash mismatch", i)
		}

		rev := &capture.Revolutions[entry.Revolution]
		switch entry.Section {
		case SectionFlux:
			rev.Flux, err = fluxFromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("fluxstore: chunk %d: %w", i, err)
			}
		case SectionData:
			rev.Data = raw
		}
	}

	if err := capture.Validate(); err != nil {
		return nil, fmt.Errorf("fluxstore: container capture: %w", err)
	}
	if id := capture.ContentID(); !bytes.Equal(id[:], header.ContentID) {
		return nil, fmt.Errorf("fluxstore: content ID mismatch: header says %s, content is %s",
			flux.FormatID(header.CaptureID()), flux.FormatID(id))
	}
	return capture, nil
}

// ReadFile reads a capture container from path.
func ReadFile(path string) (*flux.Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fluxstore: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// WriteFile writes capture to path as a container. The container is
// written to a temporary file in the same directory and renamed into
// place, so readers never observe a partial container.
func WriteFile(path string, capture *flux.Capture) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".fluxcap-*")
	if err != nil {
		return fmt.Errorf("fluxstore: creating temp container: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	buffered := bufio.NewWriter(tmpFile)
	if err := Write(buffered, capture); err != nil {
		tmpFile.Close()
		return err
	}
	if err := buffered.Flush(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("fluxstore: flushing temp container: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("fluxstore: closing temp container: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fluxstore: renaming container to %s: %w", path, err)
	}
	success = true
	return nil
}
