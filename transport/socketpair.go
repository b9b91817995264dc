// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"

	"github.com/prep/socketpair"
)

// SocketPair returns two SocketTransports joined by an anonymous Unix
// socket pair. Frames cross a real kernel socket, so both ends use the
// same framing and compression as a dialed connection.
func SocketPair(first, second SocketConfig) (*SocketTransport, *SocketTransport, error) {
	firstConn, secondConn, err := socketpair.New("unix")
	if err != nil {
		return nil, nil, fmt.Errorf("creating socket pair: %w", err)
	}
	return NewSocketTransport(firstConn, first), NewSocketTransport(secondConn, second), nil
}
