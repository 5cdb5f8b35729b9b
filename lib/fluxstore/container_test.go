// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package fluxstore

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/fluxkit/lib/flux"
)

func testCapture() *flux.Capture {
	intervals := make([]int32, 2000)
	for i := range intervals {
		intervals[i] = int32(8 + 4*(i%3))
	}
	return &flux.Capture{
		SampleRate: 24e6,
		Encoding:   flux.MFM,
		Cylinder:   40,
		Head:       1,
		Source:     "unit test",
		CapturedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Metadata:   map[string]string{"drive": "A", "media": "DD"},
		Revolutions: []flux.Revolution{
			{Flux: intervals, Data: bytes.Repeat([]byte{0x4E}, 6000)},
			{Data: bytes.Repeat([]byte{0x4E}, 6000)},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	capture := testCapture()

	var buf bytes.Buffer
	if err := Write(&buf, capture); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := string(buf.Bytes()[:8]); got != "FLUXCAP1" {
		t.Errorf("magic = %q, want %q", got, "FLUXCAP1")
	}

	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.SampleRate != capture.SampleRate {
		t.Errorf("SampleRate = %v, want %v", got.SampleRate, capture.SampleRate)
	}
	if got.Encoding != capture.Encoding {
		t.Errorf("Encoding = %v, want %v", got.Encoding, capture.Encoding)
	}
	if got.Cylinder != capture.Cylinder || got.Head != capture.Head {
		t.Errorf("position = %d.%d, want %d.%d", got.Cylinder, got.Head, capture.Cylinder, capture.Head)
	}
	if got.Source != capture.Source {
		t.Errorf("Source = %q, want %q", got.Source, capture.Source)
	}
	if !got.CapturedAt.Equal(capture.CapturedAt) {
		t.Errorf("CapturedAt = %v, want %v", got.CapturedAt, capture.CapturedAt)
	}
	if !reflect.DeepEqual(got.Metadata, capture.Metadata) {
		t.Errorf("Metadata = %v, want %v", got.Metadata, capture.Metadata)
	}

	if len(got.Revolutions) != 2 {
		t.Fatalf("got %d revolutions, want 2", len(got.Revolutions))
	}
	if !reflect.DeepEqual(got.Revolutions[0].Flux, capture.Revolutions[0].Flux) {
		t.Error("revolution 0 flux intervals differ")
	}
	if !bytes.Equal(got.Revolutions[0].Data, capture.Revolutions[0].Data) {
		t.Error("revolution 0 data differs")
	}
	if got.Revolutions[1].Flux != nil {
		t.Errorf("revolution 1 has %d flux intervals, want none", len(got.Revolutions[1].Flux))
	}
	if !bytes.Equal(got.Revolutions[1].Data, capture.Revolutions[1].Data) {
		t.Error("revolution 1 data differs")
	}

	if got.ContentID() != capture.ContentID() {
		t.Error("content ID changed across the round trip")
	}
}

func TestReadHeaderDirectory(t *testing.T) {
	capture := testCapture()

	var buf bytes.Buffer
	if err := Write(&buf, capture); err != nil {
		t.Fatalf("Write: %v", err)
	}

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	if h.Revolutions != 2 {
		t.Errorf("Revolutions = %d, want 2", h.Revolutions)
	}
	if h.Encoding != flux.MFM {
		t.Errorf("Encoding = %v, want mfm", h.Encoding)
	}
	if h.SampleRate != 24e6 {
		t.Errorf("SampleRate = %v, want 24e6", h.SampleRate)
	}
	if h.CaptureID() != capture.ContentID() {
		t.Error("header capture ID does not match the capture")
	}

	want := []struct {
		revolution       int
		section          Section
		uncompressedSize uint32
	}{
		{0, SectionFlux, 8000},
		{0, SectionData, 6000},
		{1, SectionData, 6000},
	}
	if len(h.Chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(h.Chunks), len(want))
	}
	for i, w := range want {
		entry := h.Chunks[i]
		if entry.Revolution != w.revolution || entry.Section != w.section {
			t.Errorf("chunk %d = revolution %d %s, want revolution %d %s",
				i, entry.Revolution, entry.Section, w.revolution, w.section)
		}
		if entry.UncompressedSize != w.uncompressedSize {
			t.Errorf("chunk %d uncompressed size = %d, want %d",
				i, entry.UncompressedSize, w.uncompressedSize)
		}
		// Repetitive fixtures always shrink.
		if entry.Compression != CompressionZstd {
			t.Errorf("chunk %d compression = %v, want zstd", i, entry.Compression)
		}
		if entry.CompressedSize >= entry.UncompressedSize {
			t.Errorf("chunk %d did not shrink: %d -> %d",
				i, entry.UncompressedSize, entry.CompressedSize)
		}
	}
}

func TestIncompressibleDataStoredRaw(t *testing.T) {
	data := make([]byte, 4096)
	rand.Read(data)
	capture := &flux.Capture{
		Encoding:    flux.GCR,
		Cylinder:    17,
		Revolutions: []flux.Revolution{{Data: data}},
	}

	var buf bytes.Buffer
	if err := Write(&buf, capture); err != nil {
		t.Fatalf("Write: %v", err)
	}

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(h.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(h.Chunks))
	}
	entry := h.Chunks[0]
	if entry.Compression != CompressionNone {
		t.Errorf("compression = %v, want none", entry.Compression)
	}
	if entry.CompressedSize != 4096 || entry.UncompressedSize != 4096 {
		t.Errorf("sizes = %d/%d, want 4096/4096", entry.CompressedSize, entry.UncompressedSize)
	}

	// Container length is exactly magic + length prefix + header + raw chunk.
	headerLen := binary.LittleEndian.Uint32(buf.Bytes()[8:12])
	if wantLen := 12 + int(headerLen) + 4096; buf.Len() != wantLen {
		t.Errorf("container is %d bytes, want %d", buf.Len(), wantLen)
	}

	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got.Revolutions[0].Data, data) {
		t.Error("raw chunk did not round-trip")
	}
}

func TestReadDetectsCorruptChunk(t *testing.T) {
	data := make([]byte, 4096)
	rand.Read(data)
	capture := &flux.Capture{
		Encoding:    flux.MFM,
		Revolutions: []flux.Revolution{{Data: data}},
	}

	var buf bytes.Buffer
	if err := Write(&buf, capture); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// The chunk is stored raw, so a flipped byte passes decompression
	// and must be caught by the content hash.
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err := Read(bytes.NewReader(corrupted))
	if err == nil {
		t.Fatal("Read accepted a corrupt chunk")
	}
	if !strings.Contains(err.Error(), "hash mismatch") {
		t.Errorf("error = %v, want a hash mismatch", err)
	}
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testCapture()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	full := buf.Bytes()

	for _, cut := range []int{0, 4, 10, 40, len(full) - 10} {
		if _, err := Read(bytes.NewReader(full[:cut])); err == nil {
			t.Errorf("Read accepted a container truncated to %d bytes", cut)
		}
	}
}

func TestReadBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("NOTAFLUXCONTAINER")))
	if err == nil || !strings.Contains(err.Error(), "not a capture container") {
		t.Errorf("error = %v, want a magic rejection", err)
	}

	_, err = Read(bytes.NewReader([]byte("FLUXCAP2............")))
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("error = %v, want a version rejection", err)
	}
}

func TestIsContainer(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testCapture()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !IsContainer(buf.Bytes()) {
		t.Error("IsContainer = false for a written container")
	}
	// A future version digit still sniffs as a container.
	if !IsContainer([]byte("FLUXCAP2")) {
		t.Error("IsContainer = false for version 2 magic")
	}
	if IsContainer([]byte("FLUXC")) {
		t.Error("IsContainer = true for a short prefix")
	}
	if IsContainer([]byte{0x1f, 0x8b, 0, 0, 0, 0, 0, 0}) {
		t.Error("IsContainer = true for gzip magic")
	}
}

func TestWriteRejectsInvalidCaptures(t *testing.T) {
	if err := Write(io.Discard, nil); err == nil {
		t.Error("Write accepted a nil capture")
	}
	if err := Write(io.Discard, &flux.Capture{}); err == nil {
		t.Error("Write accepted a capture with no revolutions")
	}

	// Flux data without a sample rate is uninterpretable.
	noRate := &flux.Capture{
		Revolutions: []flux.Revolution{{Flux: []int32{8, 8, 12}}},
	}
	if err := Write(io.Discard, noRate); err == nil {
		t.Error("Write accepted flux data without a sample rate")
	}
}

func validHeader() Header {
	return Header{
		Encoding:    flux.MFM,
		ContentID:   make([]byte, 32),
		Revolutions: 1,
		Chunks: []ChunkEntry{{
			Revolution:       0,
			Section:          SectionData,
			Compression:      CompressionNone,
			CompressedSize:   4,
			UncompressedSize: 4,
			Hash:             make([]byte, 32),
		}},
	}
}

func TestHeaderValidate(t *testing.T) {
	valid := validHeader()
	if err := valid.validate(); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Header)
	}{
		{"no revolutions", func(h *Header) { h.Revolutions = 0 }},
		{"no chunks", func(h *Header) { h.Chunks = nil }},
		{"short content ID", func(h *Header) { h.ContentID = h.ContentID[:16] }},
		{"revolution out of range", func(h *Header) { h.Chunks[0].Revolution = 1 }},
		{"negative revolution", func(h *Header) { h.Chunks[0].Revolution = -1 }},
		{"unknown section", func(h *Header) { h.Chunks[0].Section = "weak" }},
		{"unknown compression", func(h *Header) { h.Chunks[0].Compression = 9 }},
		{"short hash", func(h *Header) { h.Chunks[0].Hash = h.Chunks[0].Hash[:8] }},
		{"duplicate chunk", func(h *Header) { h.Chunks = append(h.Chunks, h.Chunks[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeader()
			tt.mutate(&h)
			if err := h.validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track40.1.fluxcap")
	capture := testCapture()

	if err := WriteFile(path, capture); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// The temp file must be gone after the rename.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "track40.1.fluxcap" {
		t.Errorf("directory holds %d entries after WriteFile", len(entries))
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.ContentID() != capture.ContentID() {
		t.Error("content ID changed across the file round trip")
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadFile(filepath.Join(dir, "missing.fluxcap")); err == nil {
		t.Error("ReadFile accepted a missing path")
	}
	if err := WriteFile(filepath.Join(dir, "no-such-dir", "x.fluxcap"), testCapture()); err == nil {
		t.Error("WriteFile accepted a nonexistent directory")
	}
}
