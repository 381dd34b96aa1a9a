// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what a modularui binary was built from.
//
// Release builds stamp GitCommit, GitDirty and BuildTime with -ldflags.
// Anything left unstamped falls back to the VCS metadata the Go
// toolchain embeds in the binary, so a plain "go build" or "go install"
// still reports the commit it came from.
package version

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = unknown

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = unknown

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// shortCommit is the SHA length reported when the commit comes from
// embedded build info, matching "git rev-parse --short".
const shortCommit = 12

// Build describes one binary.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Time    string
	Go      string
}

// Current returns the running binary's build description.
var Current = sync.OnceValue(func() Build {
	info, _ := debug.ReadBuildInfo()
	return resolve(GitCommit, GitDirty, BuildTime, info)
})

// resolve merges the ldflags stamps with embedded build info. Stamped
// values win; info may be nil.
func resolve(commit, dirty, buildTime string, info *debug.BuildInfo) Build {
	build := Build{
		Version: Version,
		Commit:  commit,
		Dirty:   dirty == "true",
		Time:    buildTime,
		Go:      runtime.Version(),
	}
	if info == nil {
		return build
	}
	if info.GoVersion != "" {
		build.Go = info.GoVersion
	}
	stamped := commit != unknown
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if !stamped {
				build.Commit = setting.Value
				if len(build.Commit) > shortCommit {
					build.Commit = build.Commit[:shortCommit]
				}
			}
		case "vcs.modified":
			if !stamped {
				build.Dirty = setting.Value == "true"
			}
		case "vcs.time":
			if build.Time == unknown {
				build.Time = setting.Value
			}
		}
	}
	return build
}

// String is the --version form: "0.1.0-dev (abc123-dirty, 2026-01-02T03:04:05Z)".
func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.Time)
}

// LogValue groups the build fields in structured logs.
func (b Build) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.Bool("dirty", b.Dirty),
		slog.String("built", b.Time),
		slog.String("go", b.Go),
	)
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return Current().String()
}

// Full returns detailed version information including Go version.
func Full() string {
	build := Current()
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		build, build.Go, runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA.
func Commit() string {
	return Current().Commit
}

// Fprint writes "<binary> <Info>" to w, the line every modularui
// binary prints for --version.
func Fprint(w io.Writer, binary string) {
	fmt.Fprintf(w, "%s %s\n", binary, Info())
}

// Print writes the --version line for binary to stdout.
func Print(binary string) {
	Fprint(os.Stdout, binary)
}
