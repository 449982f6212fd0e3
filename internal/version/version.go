// ABOUTME: Build version information
// ABOUTME: Version and Commit are overridden with -ldflags at release time
package version

import "fmt"

// Product is the program name shown by the CLI and TUI
const Product = "pcmbridge"

var (
	// Version is the release version
	Version = "0.3.0"

	// Commit is the source revision, empty for local builds
	Commit = ""
)

// String returns the product and version, with the commit when known
func String() string {
	if Commit == "" {
		return fmt.Sprintf("%s %s", Product, Version)
	}
	return fmt.Sprintf("%s %s (%s)", Product, Version, Commit)
}
