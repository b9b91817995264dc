// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the corebridge
// daemon.
//
// Configuration is loaded from a single file specified by either the
// COREBRIDGE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no file search.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// without an explicit section bounds engine dial attempts and logs at
// warn.
//
// Socket paths are expanded after loading: ${HOME}, ${VAR}, and
// ${VAR:-default} patterns resolve against the process environment.
// No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- engine, control, http, metrics, and log sections
//   - [Default] -- development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [ParseLevel] -- log level names to slog levels
package config
