// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for corebridge packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that a broken bridge fails the test instead of hanging
// it. They are the only place tests wait on wall-clock time.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, whose paths are limited to 108 bytes.
//
// Helpers call t.Fatalf on failure; none return errors.
package testutil
