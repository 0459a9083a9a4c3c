// Package urlutil resolves recording locations, which may be plain paths,
// file:// URLs or remote http(s) URLs, into ffmpeg inputs.
package urlutil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// URL scheme constants.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFile  = "file"
)

// IsRemoteURL checks if a location is a remote URL ffmpeg can read directly.
// This includes:
//   - URLs with http:// or https:// scheme
//   - Protocol-relative URLs (//example.com/...)
func IsRemoteURL(u string) bool {
	return strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "//")
}

// IsFileURL checks if a location uses the file:// scheme.
func IsFileURL(u string) bool {
	return strings.HasPrefix(u, "file://")
}

// GetScheme returns the scheme of a URL (http, https, file) or empty string if unknown.
func GetScheme(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme)
}

// FilePathFromURL extracts the file path from a file:// URL.
// Handles both file:///path and file://localhost/path.
func FilePathFromURL(u string) (string, error) {
	if !IsFileURL(u) {
		return "", fmt.Errorf("not a file:// URL: %s", u)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Path == "" {
		return "", fmt.Errorf("empty path in file URL: %s", u)
	}
	return parsed.Path, nil
}

// MediaInput is a resolved recording location.
type MediaInput struct {
	// Input is what ffmpeg receives after -i.
	Input string
	// Local is true when Input is a filesystem path.
	Local bool
}

// ResolveMediaInput converts a stored recording location into an ffmpeg input.
// Plain paths are cleaned, file:// URLs become paths and http(s) URLs pass through.
func ResolveMediaInput(location string) (MediaInput, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return MediaInput{}, fmt.Errorf("empty media location")
	}

	switch {
	case IsRemoteURL(location):
		return MediaInput{Input: location}, nil
	case IsFileURL(location):
		path, err := FilePathFromURL(location)
		if err != nil {
			return MediaInput{}, err
		}
		return MediaInput{Input: filepath.Clean(path), Local: true}, nil
	}

	if scheme := GetScheme(location); scheme != "" && len(scheme) > 1 {
		return MediaInput{}, fmt.Errorf("unsupported URL scheme: %s (supported: http, https, file)", scheme)
	}
	return MediaInput{Input: filepath.Clean(location), Local: true}, nil
}
