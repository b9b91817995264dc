// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the request/response channel between a
// host process and a native engine (the "callbacker").
//
// Both sides hold a [Bridge] bound to a [transport.Transport]. A
// Bridge plays two roles at once:
//
//   - Outbound: [Bridge.Send] registers a pending call under a fresh
//     correlation id, transmits a request envelope, and returns a
//     [Call] immediately. The peer's response envelope, which may
//     arrive in any order relative to other calls, resolves the Call
//     exactly once. [Bridge.Request] layers typed encoding and
//     application error handling on top.
//   - Inbound: request envelopes from the peer are decoded, routed by
//     discriminator through an immutable [Registry], and executed in
//     their own goroutine. The handler's result goes back as a
//     response envelope echoing the peer's correlation id. Requests
//     with no registered handler still get an error response, so the
//     peer never waits forever.
//
// The lifecycle is Uninitialized, Running, ShuttingDown, Closed.
// [Bridge.Close] is the explicit exit: it rejects every pending call
// with [ErrChannelClosed], drains in-flight handlers, tells the peer
// it is exiting, and releases the transport. A fatal transport error
// or an exit signal from the peer runs the same teardown.
//
// Error discipline: failures to move bytes reject the eventual result
// ([*TransportError], [ErrChannelClosed]); failures the peer reports
// are delivered inside a normal response and surfaced by
// [Bridge.Request] as [*ApplicationError]. Protocol violations
// (malformed envelopes, unmatched correlation ids) are logged and
// counted but never fail the channel.
package bridge
