// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/corebridge/lib/wire"
)

// CompressionTag identifies how a socket frame body is encoded. The
// tag is the first byte of every frame on the wire; these values are
// protocol constants shared by both ends.
type CompressionTag uint8

const (
	// CompressionNone sends the frame as is. Used for small frames
	// and for frames that do not shrink.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 uses LZ4 block compression. Cheap enough to
	// leave on for local sockets carrying HTTP bodies.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd uses zstd at the default level. Better ratio
	// for text-heavy payloads (JSON, HTML) at more CPU.
	CompressionZstd CompressionTag = 2
)

// String returns the name used in configuration.
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

// ParseCompressionTag parses a configuration name. The empty string
// means none.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (expected none, lz4, or zstd)", name)
	}
}

// errIncompressible signals that compression would not shrink the
// frame; the caller sends it uncompressed.
var errIncompressible = errors.New("frame is incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
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
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(wire.MaxFrameSize)))
	if err != nil {
		panic("transport: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeBody produces the on-wire body for frame: one tag byte, and
// for compressed frames the uncompressed length as a uvarint, then the
// data. Frames shorter than threshold, or that do not shrink, are sent
// with CompressionNone.
func encodeBody(frame []byte, tag CompressionTag, threshold int) ([]byte, error) {
	if tag != CompressionNone && len(frame) >= threshold {
		compressed, err := compress(frame, tag)
		switch {
		case err == nil:
			body := make([]byte, 0, 1+binary.MaxVarintLen64+len(compressed))
			body = append(body, byte(tag))
			body = binary.AppendUvarint(body, uint64(len(frame)))
			return append(body, compressed...), nil
		case !errors.Is(err, errIncompressible):
			return nil, err
		}
	}

	body := make([]byte, 0, 1+len(frame))
	body = append(body, byte(CompressionNone))
	return append(body, frame...), nil
}

// decodeBody reverses encodeBody. limit bounds the declared
// uncompressed length so a hostile peer cannot force a huge
// allocation.
func decodeBody(body []byte, limit int) ([]byte, error) {
	if len(body) == 0 {
		return nil, errors.New("empty frame body")
	}
	tag := CompressionTag(body[0])
	rest := body[1:]
	if tag == CompressionNone {
		return rest, nil
	}

	size, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, fmt.Errorf("%s frame: bad uncompressed length", tag)
	}
	if size > uint64(limit) {
		return nil, fmt.Errorf("%s frame: %w: uncompressed length %d (limit %d)", tag, wire.ErrFrameTooLarge, size, limit)
	}
	return decompress(rest[n:], tag, int(size))
}

func compress(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func decompress(compressed []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionLZ4:
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}
		return destination, nil

	case CompressionZstd:
		destination, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(destination) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(destination), uncompressedSize)
		}
		return destination, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}
