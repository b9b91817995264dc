// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree and output helpers shared by
// the corebridge binaries.
//
// A [Command] has a name, help text, an optional [pflag.FlagSet]
// factory, and either nested Subcommands or a Run function. Execute
// dispatches on the first positional argument, parses flags, and
// suggests the nearest command or flag name on a typo.
//
// [NewLogger] builds the process logger: text on a terminal, JSON
// when stderr is redirected.
package cli
