// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via -ldflags at build time. When GitCommit is left at "unknown",
// the VCS stamp the Go toolchain embeds is used instead.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	// Version is the daemon's release number.
	Version = "0.1.0-dev"
)

var stampOnce sync.Once

// stamp fills GitCommit, GitDirty, and BuildTime from the embedded
// build info when ldflags did not set them.
func stamp() {
	stampOnce.Do(func() {
		if GitCommit != "unknown" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				GitCommit = setting.Value
				if len(GitCommit) > 12 {
					GitCommit = GitCommit[:12]
				}
			case "vcs.modified":
				GitDirty = setting.Value
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	})
}

// Info returns "version (commit[-dirty], build time)" for --version
// output and the control socket's version action.
func Info() string {
	stamp()
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full adds the Go toolchain and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns the bare release number, as used in the default HTTP
// User-Agent.
func Short() string {
	return Version
}
