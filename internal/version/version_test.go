package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String()
	if !strings.HasPrefix(got, Version+" (") {
		t.Errorf("String() = %q, want prefix %q", got, Version+" (")
	}
}

func TestResolveKeepsLinkerValues(t *testing.T) {
	oldCommit, oldTime := Commit, BuildTime
	t.Cleanup(func() { Commit, BuildTime = oldCommit, oldTime })

	Commit, BuildTime = "abc1234", "2026-01-01T00:00:00Z"
	Resolve()

	if Commit != "abc1234" {
		t.Errorf("Commit = %q, want abc1234", Commit)
	}
	if BuildTime != "2026-01-01T00:00:00Z" {
		t.Errorf("BuildTime = %q, want unchanged", BuildTime)
	}
}
