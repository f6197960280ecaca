// Package version holds build metadata for the thymus binary.
package version

import "runtime"

// Overridden at build time:
// go build -ldflags "-X thymus/internal/version.Version=0.4.0 -X thymus/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the machine-readable form printed by `thymus version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// Get returns the current build metadata.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Info returns the version with a short commit suffix when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form used by `thymus version`.
func Full() string {
	return "thymus " + Version + "\n" +
		"commit: " + Commit + "\n" +
		"built:  " + BuildDate
}
