// Package version holds build information set via -ldflags.
package version

// Set with -ldflags "-X github.com/neox5/statbox/internal/version.Version=v1.2.3".
var (
	Version = "dev"
	Commit  = ""
)

// String returns the version, with the commit when known.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
