// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package fluxstore

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCompressionTagString(t *testing.T) {
	tests := []struct {
		tag  CompressionTag
		want string
	}{
		{CompressionNone, "none"},
		{CompressionLZ4, "lz4"},
		{CompressionZstd, "zstd"},
		{CompressionTag(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.tag.String(); got != tt.want {
				t.Errorf("CompressionTag(%d).String() = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		t.Run(name, func(t *testing.T) {
			tag, err := ParseCompressionTag(name)
			if err != nil {
				t.Fatalf("ParseCompressionTag(%q) failed: %v", name, err)
			}
			if tag.String() != name {
				t.Errorf("roundtrip: ParseCompressionTag(%q).String() = %q", name, tag.String())
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseCompressionTag("gzip"); err == nil {
			t.Error("ParseCompressionTag(\"gzip\") should fail")
		}
	})
}

func TestCompressDecompressNone(t *testing.T) {
	data := []byte("stored verbatim, no copy")

	compressed, err := compressChunk(data, CompressionNone)
	if err != nil {
		t.Fatalf("compressChunk(none) failed: %v", err)
	}
	if &compressed[0] != &data[0] {
		t.Error("CompressionNone should return the same slice, not a copy")
	}

	decompressed, err := decompressChunk(compressed, CompressionNone, len(data))
	if err != nil {
		t.Fatalf("decompressChunk(none) failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("none compression roundtrip failed")
	}

	if _, err := decompressChunk(data, CompressionNone, len(data)+5); err == nil {
		t.Error("decompressChunk(none) should fail when size does not match")
	}
}

func TestCompressDecompressLZ4(t *testing.T) {
	data := make([]byte, 32*1024)
	for i := range data {
		data[i] = byte(i % 17)
	}

	compressed, err := compressChunk(data, CompressionLZ4)
	if err != nil {
		t.Fatalf("compressChunk(lz4) failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("LZ4 did not compress: %d bytes -> %d bytes", len(data), len(compressed))
	}

	decompressed, err := decompressChunk(compressed, CompressionLZ4, len(data))
	if err != nil {
		t.Fatalf("decompressChunk(lz4) failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("LZ4 roundtrip mismatch")
	}
}

func TestCompressDecompressZstd(t *testing.T) {
	// A track gap pattern: long 0x4E runs compress very well.
	data := bytes.Repeat([]byte{0x4E}, 32*1024)

	compressed, err := compressChunk(data, CompressionZstd)
	if err != nil {
		t.Fatalf("compressChunk(zstd) failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("zstd did not compress: %d bytes -> %d bytes", len(data), len(compressed))
	}

	decompressed, err := decompressChunk(compressed, CompressionZstd, len(data))
	if err != nil {
		t.Fatalf("decompressChunk(zstd) failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("zstd roundtrip mismatch")
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA}, 4096)

	compressed, err := compressChunk(data, CompressionZstd)
	if err != nil {
		t.Fatalf("compressChunk(zstd) failed: %v", err)
	}
	if _, err := decompressChunk(compressed, CompressionZstd, len(data)/2); err == nil {
		t.Error("decompressChunk should reject a wrong uncompressed size")
	}
}

func TestCompressIncompressible(t *testing.T) {
	data := make([]byte, 32*1024)
	rand.Read(data)

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			_, err := compressChunk(data, tag)
			if err != errIncompressible {
				t.Errorf("compressChunk(random, %s) = %v, want errIncompressible", tag, err)
			}
		})
	}
}

func TestCompressAutoFallback(t *testing.T) {
	data := make([]byte, 4096)
	rand.Read(data)

	stored, tag, err := compressAuto(data, CompressionZstd)
	if err != nil {
		t.Fatalf("compressAuto failed: %v", err)
	}
	if tag != CompressionNone {
		t.Errorf("tag = %v, want CompressionNone", tag)
	}
	if &stored[0] != &data[0] {
		t.Error("fallback should keep the original slice")
	}
}

func TestSelectCompression(t *testing.T) {
	random := make([]byte, 4096)
	rand.Read(random)

	// Three quarters random, one quarter zeros: compresses, but only
	// modestly, which lands in the LZ4 band.
	mixed := make([]byte, 4096)
	copy(mixed, random[:3072])

	tests := []struct {
		name string
		data []byte
		want CompressionTag
	}{
		{"empty", nil, CompressionNone},
		{"uniform", bytes.Repeat([]byte{0x4E}, 4096), CompressionZstd},
		{"random", random, CompressionNone},
		{"mixed", mixed, CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectCompression(tt.data); got != tt.want {
				t.Errorf("selectCompression(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
