// Package version holds build information for the oracle binaries.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/rickgao/oracle-consensus/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/oracle-consensus/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "runtime/debug"

var (
	// Version is the release version.
	Version = "dev"

	// Commit is the short git hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// Resolve fills Commit and BuildTime from the embedded VCS stamp when
// they were not set by ldflags.
func Resolve() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		case "vcs.time":
			if BuildTime == "unknown" {
				BuildTime = s.Value
			}
		}
	}
}
