// Package version reports the build version, preferring values stamped
// at link time and falling back to the toolchain's embedded build info.
package version

import "runtime/debug"

// Set via -ldflags at release time.
var (
	Version = ""
	Commit  = ""
)

type Info struct {
	Version string
	Commit  string
	Dirty   bool
}

func Resolve() Info {
	info := Info{Version: Version, Commit: Commit}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.modified":
				if s.Value == "true" {
					info.Dirty = true
				}
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

func String() string {
	info := Resolve()
	s := info.Version
	if info.Commit != "" {
		s += " (" + shortCommit(info.Commit) + ")"
	}
	if info.Dirty {
		s += " dirty"
	}
	return s
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
