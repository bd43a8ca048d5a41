// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := []string{Version, GitCommit, GitDirty, BuildTime}
	t.Cleanup(func() { Version, GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2], saved[3] })

	Version, GitCommit, GitDirty, BuildTime = "1.2.0", "abc1234", "true", "2026-10-18T00:00:00Z"
	if got, want := Info(), "1.2.0 (abc1234-dirty, 2026-10-18T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "dirty") {
		t.Errorf("Info() = %q for a clean build", got)
	}
}

func TestFullNamesProtocol(t *testing.T) {
	if full := Full(); !strings.Contains(full, "Protocol: 1") {
		t.Errorf("Full() = %q", full)
	}
}
