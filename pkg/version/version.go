// Package version carries the form-relay build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"time"
)

var (
	// Version is the semantic version, injected at build time via -ldflags
	Version = "dev"
	// GitCommit is the git commit hash, injected at build time
	GitCommit = "unknown"
	// BuildDate is the build timestamp, injected at build time
	BuildDate = "unknown"
	// GoVersion is the Go compiler version
	GoVersion = runtime.Version()
	// Platform is the OS/Arch
	Platform = runtime.GOOS + "/" + runtime.GOARCH
)

// BuildInfo is served by GET /version and printed by `form-relay version`.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"gitCommit"`
	BuildDate string    `json:"buildDate"`
	GoVersion string    `json:"goVersion"`
	Platform  string    `json:"platform"`
	BuildTime time.Time `json:"buildTime,omitempty"`
}

func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
		Platform:  Platform,
	}
	if t, err := time.Parse(time.RFC3339, BuildDate); err == nil {
		info.BuildTime = t
	}
	return info
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("form-relay %s (commit %s, built %s, %s %s)", b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}

// UserAgent identifies outbound HTTP calls, e.g. to the captcha endpoint.
func UserAgent() string {
	return "form-relay/" + Version
}
