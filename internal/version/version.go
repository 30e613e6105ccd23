package version

import (
	"fmt"
	"runtime"
)

// Product names the project in user agents.
const Product = "sos-button"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s, %s/%s",
		Product, Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies outgoing HTTP and gRPC requests, e.g. "sos-button/1.0.0 (linux/amd64)".
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", Product, Version, runtime.GOOS, runtime.GOARCH)
}
