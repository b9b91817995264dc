// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the envelope that crosses the host/engine
// boundary and its binary encoding.
//
// An [Envelope] carries a [Kind] (request, response, notification,
// exit), a correlation id, and an opaque payload. The encoding is the
// Protocol Buffers wire format with fixed field numbers, so any
// implementation that agrees on the schema below can interoperate:
//
//	message Envelope {
//	  Kind   kind           = 1;
//	  uint64 correlation_id = 2;
//	  bytes  payload        = 3;
//	}
//
// Unknown fields are skipped on decode. Fields holding their zero value
// are omitted on encode, matching proto3 semantics; a decoded envelope
// is therefore field-for-field equal to the encoded one.
//
// Stream transports delimit envelopes with [WriteFrame] and
// [ReadFrame]: a varint length prefix followed by that many bytes.
// In-process transports hand encoded envelopes across directly and do
// not need framing.
package wire
