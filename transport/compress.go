// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies how a frame body is encoded. The tag is
// the first plaintext byte of every frame. These values are protocol
// constants.
type CompressionTag uint8

const (
	// CompressionNone sends the body as is.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: fast, modest ratio.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level: better ratio for
	// the text-heavy payloads chat produces.
	CompressionZstd CompressionTag = 2
)

// compressionThreshold is the smallest body worth compressing. Short
// chat messages and presence announcements stay below it.
const compressionThreshold = 256

// sizePrefix is the length of the uncompressed-size header that
// precedes compressed data.
const sizePrefix = 4

// errIncompressible reports that compressing did not make the body
// smaller. The caller sends it uncompressed.
var errIncompressible = errors.New("data is incompressible")

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a compression tag from its string
// representation.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// encodeBody returns the frame plaintext for body: the tag actually
// used, then either the body or the uncompressed size and the
// compressed bytes.
func encodeBody(body []byte, preferred CompressionTag) ([]byte, error) {
	if preferred != CompressionNone && len(body) >= compressionThreshold {
		var compressed []byte
		var err error
		switch preferred {
		case CompressionLZ4:
			compressed, err = compressLZ4(body)
		case CompressionZstd:
			compressed, err = compressZstd(body)
		default:
			return nil, fmt.Errorf("unsupported compression tag: %d", preferred)
		}
		switch {
		case err == nil:
			plaintext := make([]byte, 1+sizePrefix, 1+sizePrefix+len(compressed))
			plaintext[0] = byte(preferred)
			binary.BigEndian.PutUint32(plaintext[1:], uint32(len(body)))
			return append(plaintext, compressed...), nil
		case !errors.Is(err, errIncompressible):
			return nil, err
		}
	}

	plaintext := make([]byte, 1, 1+len(body))
	plaintext[0] = byte(CompressionNone)
	return append(plaintext, body...), nil
}

// decodeBody reverses encodeBody. The uncompressed size is checked
// against limit before any allocation.
func decodeBody(plaintext []byte, limit int) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, errors.New("empty frame")
	}
	tag := CompressionTag(plaintext[0])
	if tag == CompressionNone {
		return plaintext[1:], nil
	}

	if len(plaintext) < 1+sizePrefix {
		return nil, fmt.Errorf("%s frame too short for size header", tag)
	}
	size := int(binary.BigEndian.Uint32(plaintext[1:]))
	if size > limit {
		return nil, fmt.Errorf("%s frame declares %d bytes, limit is %d", tag, size, limit)
	}
	compressed := plaintext[1+sizePrefix:]

	switch tag {
	case CompressionLZ4:
		return decompressLZ4(compressed, size)
	case CompressionZstd:
		return decompressZstd(compressed, size)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("transport: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
	if err != nil {
		panic("transport: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
