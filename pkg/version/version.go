// Package version holds build metadata for the uoft-tools binaries.
package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/uoft-netops/uoft-tools/pkg/version.Version=v1.0.0 \
//	  -X github.com/uoft-netops/uoft-tools/pkg/version.GitCommit=abc1234 \
//	  -X github.com/uoft-netops/uoft-tools/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return Version + " (" + GitCommit + ") built " + BuildDate
}

// String returns the version line printed by `<tool> version`.
func String(tool string) string {
	if Version == "dev" {
		return fmt.Sprintf("%s dev build (use 'make build' for version info)", tool)
	}
	return fmt.Sprintf("%s %s", tool, Info())
}
