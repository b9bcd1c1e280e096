package context

import (
	"fmt"
	"runtime/debug"
)

// VersionInfo contains the application version and build metadata.
type VersionInfo struct {
	Semantic string
	Commit   string
	Dirty    bool
}

// String returns the full version string.
func (v *VersionInfo) String() string {
	ver := v.Semantic
	if v.Commit != "" {
		commit := v.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		ver = fmt.Sprintf("%s (%s)", ver, commit)
	}
	if v.Dirty {
		ver += " dirty"
	}
	return ver
}

// GetVersion returns version information embedded in the binary at build time.
func GetVersion() (*VersionInfo, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, fmt.Errorf("failed reading build info")
	}

	v := &VersionInfo{Semantic: info.Main.Version}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.modified":
			v.Dirty = setting.Value == "true"
		}
	}

	return v, nil
}
