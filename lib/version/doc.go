// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build information for corebridge binaries
// and the version compatibility check between host and engine.
//
// # Build information
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/corebridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" / "0.1.0-dev" in development builds and
// test runs. [Info] formats them for --version; [Full] adds the Go
// version and platform; [Short] is the bare version.
//
// # Engine compatibility
//
// The host asks the engine for its library version (GET_VERSION) at
// startup. [Semver] holds the answer, [ParseSemver] reads a configured
// minimum such as "2.3.0", and [Semver.AtLeast] decides whether the
// engine is new enough.
package version
