// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// PeerCredentials returns the process credentials of the other end of
// a Unix socket connection, as recorded by the kernel at connect time.
func PeerCredentials(conn net.Conn) (Credentials, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return Credentials{}, fmt.Errorf("peer credentials need a unix socket, got %T", conn)
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return Credentials{}, err
	}

	var credentials *unix.Ucred
	var sockoptErr error
	err = raw.Control(func(fd uintptr) {
		credentials, sockoptErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return Credentials{}, err
	}
	if sockoptErr != nil {
		return Credentials{}, fmt.Errorf("SO_PEERCRED: %w", sockoptErr)
	}
	return Credentials{
		PID: credentials.Pid,
		UID: credentials.Uid,
		GID: credentials.Gid,
	}, nil
}
