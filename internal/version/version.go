// Package version exposes build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds
	Version = "dev"
	// Commit is the short git commit hash
	Commit = "unknown"
	// BuildTime is the UTC build timestamp
	BuildTime = "unknown"
)

// String returns a single-line, human-readable build description.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}
