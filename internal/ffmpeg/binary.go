// Package ffmpeg provides FFmpeg binary detection and command execution.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/tvrec/internal/util"
)

// BinaryEnvVar overrides the ffmpeg binary location when no path is configured.
const BinaryEnvVar = "TVREC_FFMPEG_BINARY"

var versionRegex = regexp.MustCompile(`^n?(\d+)\.(\d+)`)

// BinaryInfo contains information about the FFmpeg installation.
type BinaryInfo struct {
	FFmpegPath    string `json:"ffmpeg_path"`
	Version       string `json:"version"`
	MajorVersion  int    `json:"major_version"`
	MinorVersion  int    `json:"minor_version"`
	BuildDate     string `json:"build_date,omitempty"`
	Configuration string `json:"configuration,omitempty"`
}

// BinaryDetector handles detection and caching of the FFmpeg binary.
type BinaryDetector struct {
	configured string

	mu           sync.RWMutex
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration
}

// NewBinaryDetector creates a new binary detector. A non-empty configured
// path takes precedence over environment and PATH lookup.
func NewBinaryDetector(configured string) *BinaryDetector {
	return &BinaryDetector{
		configured: configured,
		cacheTTL:   5 * time.Minute,
	}
}

// WithCacheTTL sets the cache TTL for binary detection.
func (d *BinaryDetector) WithCacheTTL(ttl time.Duration) *BinaryDetector {
	d.cacheTTL = ttl
	return d
}

// Detect locates FFmpeg and reads its version.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring write lock
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Clear clears the cached binary information.
func (d *BinaryDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = nil
}

func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	ffmpegPath, err := util.ResolveBinary(d.configured, "ffmpeg", BinaryEnvVar)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	version, err := getVersion(ctx, ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}

	return &BinaryInfo{
		FFmpegPath:    ffmpegPath,
		Version:       version.Full,
		MajorVersion:  version.Major,
		MinorVersion:  version.Minor,
		BuildDate:     version.BuildDate,
		Configuration: version.Configuration,
	}, nil
}

// versionInfo holds parsed version information.
type versionInfo struct {
	Full          string
	Major         int
	Minor         int
	BuildDate     string
	Configuration string
}

func getVersion(ctx context.Context, ffmpegPath string) (*versionInfo, error) {
	output, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return nil, err
	}
	return parseVersion(string(output))
}

// parseVersion reads "ffmpeg -version" output. Version strings look like
// "6.0", "n6.0-2-g..." or "6.0.1".
func parseVersion(output string) (*versionInfo, error) {
	info := &versionInfo{}

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "ffmpeg version"):
			parts := strings.Fields(line)
			if len(parts) >= 3 {
				info.Full = parts[2]
				if matches := versionRegex.FindStringSubmatch(parts[2]); len(matches) >= 3 {
					info.Major, _ = strconv.Atoi(matches[1])
					info.Minor, _ = strconv.Atoi(matches[2])
				}
			}
		case strings.HasPrefix(line, "built with"):
			info.BuildDate = strings.TrimPrefix(line, "built with ")
		case strings.HasPrefix(line, "configuration:"):
			info.Configuration = strings.TrimPrefix(line, "configuration: ")
		}
	}

	if info.Full == "" {
		return nil, fmt.Errorf("failed to parse ffmpeg version")
	}

	return info, nil
}

// JSON returns the binary info as JSON string.
func (info *BinaryInfo) JSON() string {
	data, _ := json.MarshalIndent(info, "", "  ")
	return string(data)
}

// SupportsMinVersion returns true if FFmpeg version meets minimum requirement.
func (info *BinaryInfo) SupportsMinVersion(major, minor int) bool {
	if info.MajorVersion > major {
		return true
	}
	if info.MajorVersion == major && info.MinorVersion >= minor {
		return true
	}
	return false
}
