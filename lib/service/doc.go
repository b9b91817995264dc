// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the daemon's local operator surfaces.
//
// SocketServer serves a CBOR request-response protocol on a Unix
// socket: one request per connection, routed by its "action" field,
// answered with a [Response] envelope. ServiceClient is the matching
// client used by the corebridge subcommands. HTTPServer wraps an
// http.Handler with listener lifecycle and graceful shutdown and
// carries the Prometheus metrics endpoint.
//
// The control socket is created owner-only. Callers may add a
// per-connection check with [SocketServer.Authorize]; the daemon uses
// it to compare the peer's kernel-reported uid with its own.
package service
