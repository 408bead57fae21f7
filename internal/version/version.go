// Package version provides build-time version information.
package version

import "fmt"

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// String formats the info the way the -version flag prints it.
func (i Info) String() string {
	return fmt.Sprintf("pastlog %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildTime)
}
