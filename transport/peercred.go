// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

// Credentials identifies the process on the other end of a Unix
// socket.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// ErrPeerCredentialsUnsupported is returned by PeerCredentials on
// platforms without SO_PEERCRED.
var ErrPeerCredentialsUnsupported = errors.New("transport: peer credentials not supported on this platform")
