// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"log/slog"
	"runtime"
)

// set at build time with -ldflags "-X .../internal/version.version=..."
var (
	version   string
	buildTime string
	gitBranch string
	gitCommit string
)

type VersionInfo struct {
	Version   string
	BuildTime string
	GitBranch string
	GitCommit string

	GoVersion string
	GoOS      string
	GoArch    string
}

// Info returns the version information
func Info() VersionInfo {
	return VersionInfo{
		Version:   version,
		BuildTime: buildTime,
		GitBranch: gitBranch,
		GitCommit: gitCommit,

		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
}

// String is the one-line form printed by --version
func (v VersionInfo) String() string {
	ver := v.Version
	if ver == "" {
		ver = "dev"
	}
	commit := v.GitCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		return fmt.Sprintf("pmon %s (%s %s/%s)", ver, v.GoVersion, v.GoOS, v.GoArch)
	}
	return fmt.Sprintf("pmon %s-%s (%s %s/%s)", ver, commit, v.GoVersion, v.GoOS, v.GoArch)
}

// LogValue groups the build details under one log attribute
func (v VersionInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", v.Version),
		slog.String("buildTime", v.BuildTime),
		slog.String("gitBranch", v.GitBranch),
		slog.String("gitCommit", v.GitCommit),
		slog.String("goVersion", v.GoVersion),
	)
}
