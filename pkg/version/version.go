// Package version exposes build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Set at build time:
//
//	-ldflags "-X github.com/Daethyra/ExecEye/pkg/version.version=1.2.3"
//
//nolint:gochecknoglobals // ldflags targets
var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// GetVersion returns the version without a leading "v".
func GetVersion() string {
	return strings.TrimPrefix(version, "v")
}

// GetGitCommit returns the commit the binary was built from.
func GetGitCommit() string {
	return gitCommit
}

// GetBuildDate returns the build timestamp.
func GetBuildDate() string {
	return buildDate
}

// Semver parses the build version.
func Semver() (*semver.Version, error) {
	v, err := semver.NewVersion(GetVersion())
	if err != nil {
		return nil, fmt.Errorf("parsing build version %q: %w", version, err)
	}
	return v, nil
}

// IsDevelopment reports whether this is a prerelease or unparseable build.
func IsDevelopment() bool {
	v, err := Semver()
	if err != nil {
		return true
	}
	return v.Prerelease() != ""
}

// String returns the multi-line version banner printed by --version.
func String() string {
	return fmt.Sprintf("%s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s",
		GetVersion(), gitCommit, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
