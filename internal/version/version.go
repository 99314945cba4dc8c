package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line description suitable for --version output
// and the health endpoint. Callers prefix the binary name.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}

// UserAgent returns the User-Agent header value for outbound requests.
func UserAgent() string {
	return fmt.Sprintf("layoutd/%s", Version)
}
