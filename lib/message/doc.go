// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package message defines the typed payloads carried inside
// [wire.Envelope] values.
//
// Every request on the bridge is a [Request]: a discriminator plus an
// encoded sub-message. Every answer is a [Response]: either an error
// string or an encoded sub-message. The same two shapes serve both
// directions. Requests from the host to the engine use the Core*
// discriminators; requests from the engine to the host (service
// requests) use the Service* discriminators.
//
// All types encode to the Protocol Buffers wire format with the field
// numbers below. Decoders skip unknown fields.
//
//	message Request      { int32 type = 1; bytes body = 2; }
//	message Response     { string error = 1; bytes body = 2; }
//	message HttpRequest  { string method = 1; string url = 2;
//	                       map<string, string> headers = 3; bytes body = 4; }
//	message HttpResponse { int32 code = 1; bytes body = 2; }
//	message GetVersionResponse { int32 major = 1; int32 minor = 2; int32 patch = 3; }
//	message FetchRequest { string url = 1; }
//
// [wire.Envelope]: github.com/bureau-foundation/corebridge/lib/wire.Envelope
package message
