// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/corebridge/lib/netutil"
	"github.com/bureau-foundation/corebridge/lib/wire"
)

// DefaultCompressThreshold is the frame size below which frames are
// sent uncompressed regardless of SocketConfig.Compression.
const DefaultCompressThreshold = 4096

// frameOverhead covers the tag byte and uncompressed-length prefix a
// body carries on top of the frame itself.
const frameOverhead = 16

// SocketConfig configures a SocketTransport.
type SocketConfig struct {
	// Compression selects the algorithm for outbound frames. Inbound
	// frames carry their own tag, so the two ends need not agree.
	Compression CompressionTag

	// CompressThreshold is the minimum frame size to compress. Zero
	// means DefaultCompressThreshold.
	CompressThreshold int

	// MaxFrameSize bounds frames in both directions (inbound after
	// decompression). Zero means wire.MaxFrameSize.
	MaxFrameSize int

	// Logger receives connection-level events. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// SocketTransport carries frames over a stream connection (a Unix
// socket in production). Each frame is written as a varint length and
// a body consisting of a compression tag byte and the (possibly
// compressed) frame. A single goroutine reads frames and delivers them
// to the bound Receiver.
type SocketTransport struct {
	conn              net.Conn
	compression       CompressionTag
	compressThreshold int
	maxFrameSize      int
	logger            *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	receiver Receiver
	closed   bool
	readDone chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewSocketTransport wraps conn. The transport owns conn from here on.
func NewSocketTransport(conn net.Conn, config SocketConfig) *SocketTransport {
	threshold := config.CompressThreshold
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	maxFrameSize := config.MaxFrameSize
	if maxFrameSize <= 0 {
		maxFrameSize = wire.MaxFrameSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketTransport{
		conn:              conn,
		compression:       config.Compression,
		compressThreshold: threshold,
		maxFrameSize:      maxFrameSize,
		logger:            logger.With("remote", remoteName(conn)),
		readDone:          make(chan struct{}),
	}
}

// Bind starts the read loop.
func (s *SocketTransport) Bind(receiver Receiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.receiver != nil {
		return ErrAlreadyBound
	}
	s.receiver = receiver
	go s.readLoop(receiver)
	return nil
}

// Transmit writes one frame. Concurrent callers are serialized so
// frames never interleave on the stream. A frame over the size limit
// is refused before anything is written.
func (s *SocketTransport) Transmit(frame []byte) error {
	if s.isClosed() {
		return ErrClosed
	}
	if len(frame) > s.maxFrameSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", wire.ErrFrameTooLarge, len(frame), s.maxFrameSize)
	}

	body, err := encodeBody(frame, s.compression, s.compressThreshold)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := wire.WriteFrame(s.conn, body); err != nil {
		if s.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Close closes the connection and waits for the read loop to exit.
// Must not be called from within the bound Receiver.
func (s *SocketTransport) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		bound := s.receiver != nil
		s.mu.Unlock()

		s.closeErr = s.conn.Close()
		if bound {
			<-s.readDone
		}
	})
	return s.closeErr
}

func (s *SocketTransport) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SocketTransport) readLoop(receiver Receiver) {
	defer close(s.readDone)

	reader := bufio.NewReader(s.conn)
	for {
		body, err := wire.ReadFrame(reader, s.maxFrameSize+frameOverhead)
		if errors.Is(err, wire.ErrFrameTooLarge) {
			s.frameDropped(receiver, err)
			continue
		}
		if err != nil {
			s.readFailed(receiver, err)
			return
		}
		frame, err := decodeBody(body, s.maxFrameSize)
		if errors.Is(err, wire.ErrFrameTooLarge) {
			s.frameDropped(receiver, fmt.Errorf("decoding frame: %w", err))
			continue
		}
		if err != nil {
			// Any other bad body means the stream can no longer be
			// trusted to be in sync.
			s.readFailed(receiver, fmt.Errorf("decoding frame: %w", err))
			return
		}
		receiver.Receive(frame)
	}
}

// frameDropped reports an oversized inbound frame. The stream is still
// at a frame boundary, so reading continues.
func (s *SocketTransport) frameDropped(receiver Receiver, err error) {
	s.logger.Warn("inbound frame dropped", "error", err)
	receiver.FrameDropped(err)
}

func (s *SocketTransport) readFailed(receiver Receiver, err error) {
	if s.isClosed() {
		return
	}
	if netutil.IsExpectedCloseError(err) {
		s.logger.Debug("peer closed connection")
		receiver.TransportFailed(ErrPeerClosed)
		return
	}
	s.logger.Warn("socket read failed", "error", err)
	receiver.TransportFailed(err)
}

// remoteName labels conn for logging. Accepted Unix socket
// connections usually have no remote name.
func remoteName(conn net.Conn) string {
	address := conn.RemoteAddr()
	if address == nil || address.String() == "" {
		return "unnamed"
	}
	return address.String()
}
