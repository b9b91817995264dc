// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestParseSemver(t *testing.T) {
	tests := []struct {
		input string
		want  Semver
	}{
		{"1.2.3", Semver{1, 2, 3}},
		{"v2.0.10", Semver{2, 0, 10}},
		{" 4.5 ", Semver{4, 5, 0}},
		{"7", Semver{7, 0, 0}},
	}
	for _, test := range tests {
		got, err := ParseSemver(test.input)
		if err != nil {
			t.Errorf("ParseSemver(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseSemver(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestParseSemverErrors(t *testing.T) {
	for _, input := range []string{"", "v", "1.2.3.4", "1.x.0", "-1.0.0", "1.2.3-rc.1", "1.2.3+build.7", "4294967296.0.0"} {
		if _, err := ParseSemver(input); err == nil {
			t.Errorf("ParseSemver(%q) succeeded", input)
		}
	}
}

func TestSemverCompare(t *testing.T) {
	tests := []struct {
		a, b Semver
		want int
	}{
		{Semver{1, 2, 3}, Semver{1, 2, 3}, 0},
		{Semver{1, 2, 3}, Semver{1, 2, 4}, -1},
		{Semver{1, 3, 0}, Semver{1, 2, 9}, 1},
		{Semver{2, 0, 0}, Semver{10, 0, 0}, -1},
	}
	for _, test := range tests {
		if got := test.a.Compare(test.b); got != test.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
	if !(Semver{2, 1, 0}).AtLeast(Semver{2, 0, 5}) {
		t.Error("2.1.0 should satisfy minimum 2.0.5")
	}
	if (Semver{1, 9, 9}).AtLeast(Semver{2, 0, 0}) {
		t.Error("1.9.9 should not satisfy minimum 2.0.0")
	}
}

func TestInfo(t *testing.T) {
	if !strings.HasPrefix(Info(), Version) {
		t.Errorf("Info() = %q, want prefix %q", Info(), Version)
	}
	if !strings.Contains(Full(), "Go: ") {
		t.Errorf("Full() = %q, want Go version line", Full())
	}
	if Short() != Version {
		t.Errorf("Short() = %q, want %q", Short(), Version)
	}
}
