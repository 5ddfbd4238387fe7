package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release of the build.
	Version = "0.1.0-dev"
	// Commit is the short git SHA, or "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the release string.
func Short() string {
	return Version
}

// Full returns the release with commit, build time and toolchain.
func Full() string {
	return fmt.Sprintf("blossom %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
