// Package version provides build-time version information for tvrec.
//
// Version, Commit, Date, Branch and TreeState are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/tvrec/internal/version.Version=x.y.z \
//	                   -X github.com/jmylchreest/tvrec/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/tvrec/internal/version.Branch=$(git rev-parse --abbrev-ref HEAD) \
//	                   -X github.com/jmylchreest/tvrec/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// Build-time variables injected via ldflags.
var (
	// Version is the semantic version following SemVer 2.0.0.
	// Release format: "1.2.3"
	// Prerelease format: "1.2.3-SNAPSHOT.abc1234" (next patch + SNAPSHOT + short SHA)
	Version = "dev"

	// Commit is the full git commit SHA.
	Commit = "unknown"

	// Date is the build timestamp in RFC3339 format.
	Date = "unknown"

	// Branch is the git branch the binary was built from.
	Branch = "unknown"

	// TreeState is "clean" or "dirty" depending on uncommitted changes at build time.
	TreeState = "unknown"
)

// Runtime constants.
var (
	// GoVersion is the Go runtime version.
	GoVersion = runtime.Version()
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "tvrec"

const shortSHALength = 8

// Info contains structured version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	CommitSHA string `json:"commit_sha"`
	Date      string `json:"date"`
	Branch    string `json:"branch"`
	TreeState string `json:"tree_state"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Platform  string `json:"platform"`
}

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		CommitSHA: shortSHA(),
		Date:      Date,
		Branch:    Branch,
		TreeState: TreeState,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// LogValue implements slog.LogValuer so build metadata can be attached to
// startup log lines as a single group.
func (i Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", i.Version),
		slog.String("commit", i.CommitSHA),
		slog.String("date", i.Date),
		slog.String("branch", i.Branch),
		slog.String("go_version", i.GoVersion),
		slog.String("platform", i.Platform),
	)
}

// shortSHA returns the abbreviated commit, or "" when the commit is unknown.
func shortSHA() string {
	if Commit == "unknown" || len(Commit) < shortSHALength {
		return ""
	}
	return Commit[:shortSHALength]
}

// commitLabel returns the short commit with a "*" suffix for dirty trees.
func commitLabel() string {
	sha := shortSHA()
	if sha != "" && TreeState == "dirty" {
		return sha + "*"
	}
	return sha
}

// String returns a human-readable version string.
func String() string {
	info := GetInfo()
	if label := commitLabel(); label != "" {
		s := fmt.Sprintf("%s version %s (commit: %s, built: %s", ApplicationName, info.Version, label, info.Date)
		if Branch != "unknown" && Branch != "" {
			s += ", branch: " + Branch
		}
		return s + fmt.Sprintf(", %s, %s)", info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, info.Version, info.GoVersion, info.Platform)
}

// Short returns a short version string suitable for CLI --version output.
// Cobra prefixes it with the command name.
func Short() string {
	if label := commitLabel(); label != "" {
		return fmt.Sprintf("%s (%s)", Version, label)
	}
	return Version
}

// JSON returns the version information as indented JSON.
func JSON() string {
	data, _ := json.MarshalIndent(GetInfo(), "", "  ")
	return string(data)
}

// IsSnapshot returns true if this is a snapshot/prerelease build.
// Snapshots use SemVer prerelease format: X.Y.Z-SNAPSHOT.commitsha
func IsSnapshot() bool {
	return Version == "dev" || strings.Contains(Version, "-SNAPSHOT")
}

// IsRelease returns true if this is a tagged release build.
func IsRelease() bool {
	return !IsSnapshot() && Version != "dev"
}
