// Package version reports build metadata for the qualitygate binary: the
// semantic version, git commit, build time and Go toolchain, each falling
// back to debug.ReadBuildInfo when the -ldflags that normally set the
// package vars were never passed (e.g. a plain `go install`).
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo is the structured form of the version/commit/platform trio
// printed by `qualitygate version`.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	BuildUser string    `json:"build_user,omitempty"`
}

// Set at build time via -ldflags; left at these placeholder defaults for `go run`/
// `go test` and for `go install` builds that skip the ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	BuildUser = "unknown"
)

// GetBuildInfo returns the full build metadata struct used by `qualitygate
// version --format json` and the detailed text view.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   getVersion(),
		GitCommit: getGitCommit(),
		BuildTime: parseISOTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		BuildUser: BuildUser,
	}
}

// getVersion prefers the ldflags-injected Version, then the module version
// debug.ReadBuildInfo sees (set by `go install module@version`), then a
// dev-<short-commit> derived from the embedded VCS revision.
func getVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return fmt.Sprintf("dev-%s", setting.Value[:7])
			}
		}
	}
	return "dev"
}

// getGitCommit prefers the ldflags-injected GitCommit, falling back to the
// embedded VCS revision.
func getGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "unknown"
}

// GetShortVersion is the one-line form: "1.2.3 (abcdef1)" for a tagged
// build, "dev-abcdef1" otherwise.
func GetShortVersion() string {
	version := getVersion()
	commit := getGitCommit()
	if commit != "unknown" && len(commit) >= 7 {
		shortCommit := commit[:7]
		if version != "dev" && !strings.HasPrefix(version, "dev-") {
			return fmt.Sprintf("%s (%s)", version, shortCommit)
		}
		return fmt.Sprintf("dev-%s", shortCommit)
	}
	return version
}

// GetDetailedVersion renders every populated BuildInfo field as one line
// each, for `qualitygate version --detailed`.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	parts := []string{fmt.Sprintf("Version: %s", info.Version)}
	if info.GitCommit != "unknown" {
		parts = append(parts, fmt.Sprintf("Commit: %s", info.GitCommit))
	}
	if !info.BuildTime.IsZero() {
		parts = append(parts, fmt.Sprintf("Built: %s", info.BuildTime.Format(time.RFC3339)))
	}
	parts = append(parts, fmt.Sprintf("Go: %s", info.GoVersion))
	parts = append(parts, fmt.Sprintf("Platform: %s", info.Platform))
	if info.BuildUser != "unknown" && info.BuildUser != "" {
		parts = append(parts, fmt.Sprintf("User: %s", info.BuildUser))
	}
	return strings.Join(parts, "\n")
}

// IsRelease reports whether this build carries a real tagged version
// rather than a dev/dev-<commit> placeholder.
func IsRelease() bool {
	version := getVersion()
	return version != "dev" && !strings.HasPrefix(version, "dev-")
}

// IsDirty reports whether the working tree had local modifications when
// this binary was built.
func IsDirty() bool {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.modified" {
				return setting.Value == "true"
			}
		}
	}
	return false
}

// parseISOTime parses BuildTime in whichever of a few common timestamp
// formats the build system produced, returning the zero time if none
// match (including the "unknown" placeholder).
func parseISOTime(timeStr string) time.Time {
	if timeStr == "" || timeStr == "unknown" {
		return time.Time{}
	}
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05.000Z",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t
		}
	}
	return time.Time{}
}
