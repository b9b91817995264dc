// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration for the
// daemon's control socket.
//
// corebridge uses two binary formats with a clear boundary: the
// bridge itself speaks protobuf wire format (lib/wire, lib/message)
// because that is what the engine speaks, while the operator-facing
// control socket between the corebridge CLI and a running daemon
// speaks CBOR. The encoder uses Core Deterministic Encoding: the same
// logical value always produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only travel over the control socket use `cbor` struct
// tags. Types that are also printed by the CLI with --json use `json`
// tags; fxamacker/cbor reads `json` tags when `cbor` tags are absent,
// so one tag names the field in both formats. Never put both on one
// field.
package codec
