// Package version reports the build version of the bridge.
package version

import (
	"fmt"
	"regexp"
	"runtime"
)

// Set at build time with -ldflags "-X .../version.Version=v1.2.3".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var semverPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
	Release   bool   `json:"release"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Release:   IsRelease(Version),
	}
}

// IsRelease reports whether v is a semver release without a prerelease tag.
func IsRelease(v string) bool {
	m := semverPattern.FindStringSubmatch(v)
	return m != nil && m[4] == ""
}

// Validate checks that v is semver formatted.
func Validate(v string) error {
	if !semverPattern.MatchString(v) {
		return fmt.Errorf("invalid version format: %s (must be semver format, e.g., v1.0.0 or 1.2.3)", v)
	}
	return nil
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", i.Version, i.GitCommit, i.BuildTime, i.GoVersion)
}
