// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

import "runtime/debug"

// Set at link time, e.g.
// `-ldflags -X github.com/toeirei/keymaster-blacklist/buildvars.Version=...`.
// They are empty for local or development builds.
var (
	Version   string
	GitCommit string
	BuildDate string
)

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}

// Resolve returns the best-available version, commit and build date. Linker
// values win; otherwise the module and VCS stamps from `info` are used. A nil
// `info` reads build info from the runtime.
func Resolve(info *debug.BuildInfo) (version, commit, date string) {
	version = VersionOrDefault("dev")
	commit = GitCommit
	date = BuildDate

	if info == nil {
		if bi, ok := debug.ReadBuildInfo(); ok {
			info = bi
		}
	}
	if info == nil {
		return version, commit, date
	}

	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "" && s.Value != "" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "" && s.Value != "" {
				date = s.Value
			}
		}
	}
	return version, commit, date
}
