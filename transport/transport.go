// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

// ErrClosed is returned by Transmit after Close.
var ErrClosed = errors.New("transport: closed")

// ErrPeerClosed is reported through Receiver.TransportFailed, and
// returned by Transmit, once the other end has gone away.
var ErrPeerClosed = errors.New("transport: peer closed")

// ErrAlreadyBound is returned by a second call to Bind.
var ErrAlreadyBound = errors.New("transport: receiver already bound")

// Receiver consumes what a Transport delivers. Calls for one
// transport are made from a single goroutine, in arrival order, so a
// Receiver never sees frames reordered. Implementations must not
// block for long: Receive holds up every later frame.
type Receiver interface {
	// Receive delivers one frame. The slice is owned by the receiver.
	Receive(frame []byte)

	// FrameDropped reports an inbound frame the transport discarded
	// without delivering, typically wire.ErrFrameTooLarge. Later
	// frames are still delivered.
	FrameDropped(err error)

	// TransportFailed reports that no more frames will arrive. It is
	// called at most once, after every frame that preceded the failure
	// has been delivered, and never after the transport's own Close.
	TransportFailed(err error)
}

// Transport carries opaque frames across the process boundary.
type Transport interface {
	// Bind attaches the receiver and starts delivery. Frames sent by
	// the peer before Bind are buffered (pipe) or left in the socket
	// (stream) until then.
	Bind(receiver Receiver) error

	// Transmit sends one frame. Safe for concurrent use; each frame is
	// delivered whole and frames from one goroutine keep their order.
	// The caller may reuse frame after Transmit returns. A frame the
	// transport refuses to carry fails with an error wrapping
	// wire.ErrFrameTooLarge and leaves the transport usable.
	Transmit(frame []byte) error

	// Close releases the transport. The peer observes ErrPeerClosed
	// after draining frames already transmitted. Idempotent.
	Close() error
}

// Compile-time interface checks.
var (
	_ Transport = (*PipeEnd)(nil)
	_ Transport = (*SocketTransport)(nil)
)
