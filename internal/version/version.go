// Package version carries build metadata set with -ldflags.
package version

import "fmt"

var (
	// Version is the current release
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for the -version flag of tool.
func String(tool string) string {
	return fmt.Sprintf("%s %s (git %s, built %s)", tool, Version, GitSHA, BuildTime)
}
