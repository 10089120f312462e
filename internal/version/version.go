// Package version holds build version information for annot.
package version

import "runtime"

// Overridden at build time:
// go build -ldflags "-X annot/internal/version.Version=0.4.0 -X annot/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information.
func Full() string {
	return "annot version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}

// UserAgent identifies annot in outgoing HTTP requests.
func UserAgent() string {
	return "annot/" + Version
}
