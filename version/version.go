package version

import "runtime/debug"

// Version is the service version reported by the API.
const Version = "1.0.0"

// Build information set at build time via ldflags.
var (
	commit = ""
	date   = ""
)

// Commit returns the short VCS revision.
// Priority: ldflags > debug.ReadBuildInfo > "unknown"
func Commit() string {
	if commit != "" {
		return commit
	}
	if v := buildSetting("vcs.revision"); v != "" {
		if len(v) > 7 {
			return v[:7]
		}
		return v
	}
	return "unknown"
}

// Date returns the build date.
// Priority: ldflags > debug.ReadBuildInfo > "unknown"
func Date() string {
	if date != "" {
		return date
	}
	if v := buildSetting("vcs.time"); v != "" {
		return v
	}
	return "unknown"
}

func buildSetting(key string) string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
