// Package version provides build and version information for codeindexd.
package version

import (
	"fmt"
	"runtime"
)

// Version is set via ldflags at build time, or defaults to dev.
var Version = "dev"

var (
	// Commit is the git commit hash, set via ldflags at build time.
	Commit = "unknown"
	// Date is the build date in RFC3339 format, set via ldflags at build time.
	Date = "unknown"
	// GoVersion is the Go toolchain version used to build the binary.
	GoVersion = runtime.Version()
)

// String returns a formatted version string with all build info.
func String() string {
	return fmt.Sprintf("codeindexd %s (commit: %s, built: %s, go: %s)", Version, Commit, Date, GoVersion)
}
