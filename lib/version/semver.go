// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"cmp"
	"fmt"
	"math"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// Semver is a major.minor.patch triple. Pre-release and build
// suffixes are not represented: engines report bare numbers.
type Semver struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// String formats v as "major.minor.patch".
func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseSemver parses "major.minor.patch". A leading "v" is accepted
// and missing trailing components are zero ("2" is 2.0.0). Pre-release
// and build suffixes are rejected.
func ParseSemver(text string) (Semver, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Semver{}, fmt.Errorf("empty version")
	}
	parsed, err := semver.NewVersion(trimmed)
	if err != nil {
		return Semver{}, fmt.Errorf("version %q: %w", text, err)
	}
	if parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return Semver{}, fmt.Errorf("version %q: pre-release and build suffixes are not supported", text)
	}
	for _, component := range []uint64{parsed.Major(), parsed.Minor(), parsed.Patch()} {
		if component > math.MaxUint32 {
			return Semver{}, fmt.Errorf("version %q: component %d out of range", text, component)
		}
	}
	return Semver{
		Major: uint32(parsed.Major()),
		Minor: uint32(parsed.Minor()),
		Patch: uint32(parsed.Patch()),
	}, nil
}

// Compare returns -1, 0, or +1 as v is older than, equal to, or newer
// than other.
func (v Semver) Compare(other Semver) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, other.Patch)
}

// AtLeast reports whether v is minimum or newer.
func (v Semver) AtLeast(minimum Semver) bool {
	return v.Compare(minimum) >= 0
}
