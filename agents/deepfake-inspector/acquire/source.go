package acquire

import (
	"encoding/hex"
	"regexp"
	"strings"
)

// videoIDPattern matches an 11-character YouTube video ID that follows "v="
// or a path separator and ends the URL or a path/query segment.
var videoIDPattern = regexp.MustCompile(`(?:v=|/)([\w-]{11})(?:\?|&|/|$)`)

// ExtractVideoID derives the cache key for a video URL.
func ExtractVideoID(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if i := strings.IndexByte(trimmed, '#'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "", &InvalidSourceError{Source: rawURL, Reason: "empty URL"}
	}
	match := videoIDPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return "", &InvalidSourceError{Source: rawURL, Reason: "could not extract video ID from URL"}
	}
	return match[1], nil
}

// uploadKey names uploaded content by digest so identical uploads share an entry.
func uploadKey(sum []byte) string {
	return "upload-" + hex.EncodeToString(sum)[:16]
}
