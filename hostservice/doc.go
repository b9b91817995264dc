// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostservice implements the service handlers the host offers
// to its engine. The engine cannot do network I/O itself; it sends a
// ServiceHTTPRequest through the bridge and the host performs the call.
//
// [HTTPService] executes one HTTP call per request. Every outcome the
// remote server produces, including 4xx and 5xx statuses, is a
// successful response carrying an HTTPResponse. Failures to complete
// the call at all (bad URL, DNS, refused connection, timeout, a body
// over the size limit, an exhausted per-host rate limit) are reported
// as an error string in the response so the engine's pending call
// always resolves.
package hostservice
