// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides small network I/O helpers shared by the
// transport and host service packages.
//
// [IsExpectedCloseError] separates ordinary connection teardown (EOF,
// closed connection, broken pipe, reset) from real failures, so read
// loops can stay quiet on shutdown. [ReadBounded] caps response body
// reads so that a misbehaving upstream cannot exhaust host memory.
package netutil
