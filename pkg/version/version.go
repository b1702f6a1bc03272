// Package version reports build metadata for the trikefare binary.
//
// The variables are set with -ldflags at release time, for example:
//
//	go build -ldflags "-X github.com/NERVsystems/trikefare/pkg/version.BuildVersion=1.2.0"
//
// When they are left at their defaults, the VCS stamp that the Go toolchain
// embeds in module builds is used instead.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

var (
	// BuildVersion is the semantic version of the build
	BuildVersion = "0.1.0"

	// BuildCommit is the git commit hash of the build
	BuildCommit = unknown

	// BuildDate is the date and time of the build
	BuildDate = unknown

	// GoVersion is the version of Go used to build
	GoVersion = runtime.Version()
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Commit returns BuildCommit, falling back to the embedded vcs.revision
// shortened to 12 characters.
func Commit() string {
	if BuildCommit != unknown {
		return BuildCommit
	}
	rev := vcsSetting("vcs.revision")
	if rev == "" {
		return unknown
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if vcsSetting("vcs.modified") == "true" {
		rev += "-dirty"
	}
	return rev
}

// Date returns BuildDate, falling back to the embedded vcs.time.
func Date() string {
	if BuildDate != unknown {
		return BuildDate
	}
	if t := vcsSetting("vcs.time"); t != "" {
		return t
	}
	return unknown
}

func vcsSetting(key string) string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// String returns the line printed by -version
func String() string {
	return fmt.Sprintf("trikefare version %s (%s) built on %s with %s",
		BuildVersion, Commit(), Date(), GoVersion)
}

// Info returns the build metadata as labels
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"commit":     Commit(),
		"build_date": Date(),
		"go_version": GoVersion,
	}
}
