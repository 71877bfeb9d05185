// Package version holds the build version of codefacts.
package version

import "runtime"

// Set at build time:
// go build -ldflags "-X codefacts/internal/version.Version=1.0.0 -X codefacts/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns every piece of build information, one per line.
func Full() string {
	return "codefacts version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}
