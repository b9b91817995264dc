// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport moves opaque frames between a host process and its
// engine. The bridge package encodes envelopes into frames; transport
// neither inspects nor reorders them.
//
// A [Transport] is bound once to a [Receiver]. Delivery happens on a
// single goroutine per transport, in arrival order, and a transport
// failure is reported through [Receiver.TransportFailed] only after
// every earlier frame has been delivered. That ordering matters: an
// engine that sends its final responses and an exit envelope before
// closing the socket gets all of them processed.
//
// Two implementations exist:
//
//   - [Pipe] connects two in-process ends with unbounded queues. It is
//     used when the engine runs inside the host process, and in tests.
//   - [SocketTransport] carries frames over a stream socket as a varint
//     length followed by a one-byte [CompressionTag] and the body.
//     Frames above a threshold are compressed with LZ4 or zstd when
//     that shrinks them. [Listen] and [Dial] create socket transports;
//     Dial retries with exponential backoff. On Linux, [PeerCredentials]
//     reports the connecting engine's pid and uid.
package transport
