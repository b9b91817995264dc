// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds a single frame read from a stream. Engine
// responses carrying explorer payloads are at most a few megabytes;
// anything near this bound indicates a corrupted length prefix.
const MaxFrameSize = 64 << 20

// ErrFrameTooLarge is returned by ReadFrame when the length prefix
// exceeds the reader's limit. The oversized body has been consumed, so
// the stream is still positioned at a frame boundary.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// ErrImplausibleLength is returned by ReadFrame for a length prefix
// too large to be anything but corruption. The stream is left where it
// was and cannot be resynchronized.
var ErrImplausibleLength = errors.New("implausible frame length")

// discardLimit is the largest oversized frame ReadFrame will skip over
// rather than treat as a corrupted prefix.
const discardLimit = 4 * MaxFrameSize

// WriteFrame writes frame to w preceded by its varint length. The
// prefix and body are written with a single Write call so that
// concurrent writers serialized by a mutex never interleave partial
// frames.
func WriteFrame(w io.Writer, frame []byte) error {
	buffer := make([]byte, 0, protowire.SizeVarint(uint64(len(frame)))+len(frame))
	buffer = protowire.AppendVarint(buffer, uint64(len(frame)))
	buffer = append(buffer, frame...)
	if _, err := w.Write(buffer); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r. A limit of zero
// or less means MaxFrameSize. Returns io.EOF only when the stream ends
// cleanly between frames; a stream that ends inside a frame returns
// io.ErrUnexpectedEOF.
//
// A frame longer than limit is read and discarded, and ReadFrame
// returns ErrFrameTooLarge; the next call reads the frame after it.
// A prefix beyond four times MaxFrameSize yields ErrImplausibleLength.
func ReadFrame(r *bufio.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxFrameSize
	}

	length, err := binary.ReadUvarint(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame length: %w", err)
	}
	if length > uint64(limit) {
		if length > discardLimit {
			return nil, fmt.Errorf("%w: %d bytes", ErrImplausibleLength, length)
		}
		if _, err := r.Discard(int(length)); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("discarding oversized frame: %w", err)
		}
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, length, limit)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	return frame, nil
}
