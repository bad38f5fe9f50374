// Package version exposes build metadata for the crosspose binary.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Injected via -ldflags at release build time. Development builds fall back
// to module build info where available.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	commit := gitCommit
	if commit == "none" {
		if rev, ok := vcsRevision(); ok {
			commit = rev
		}
	}

	return Info{
		Version:   version,
		GitCommit: shortCommit(commit),
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// vcsRevision reads the commit hash stamped into the module build info.
func vcsRevision() (string, bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}

	for _, setting := range bi.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			return setting.Value, true
		}
	}

	return "", false
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("crosspose %s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
