package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxClaimRunes bounds the query built from an ordinary claim
	maxClaimRunes = 200

	// minSegmentRunes is the length a video-metadata segment must exceed to be kept
	minSegmentRunes = 20

	// segmentSeparator separates title, channel and view counts in scraped video text
	segmentSeparator = "·"
)

// ClaimNormalizer turns raw claim text into a usable search query
type ClaimNormalizer struct {
	markers []string
}

// NewClaimNormalizer creates a normalizer that treats text containing any of
// markers as scraped video-platform metadata
func NewClaimNormalizer(markers []string) *ClaimNormalizer {
	if len(markers) == 0 {
		markers = []string{"YouTube", "youtube.com"}
	}
	return &ClaimNormalizer{markers: markers}
}

// Clean extracts the core claim from text. It never fails; the worst case is
// the first 200 characters of the input, trimmed.
func (n *ClaimNormalizer) Clean(text string) string {
	if n.hasMarker(text) {
		segments := splitSegments(text)
		if len(segments) > 0 {
			// Prefer a segment that does not open like a timestamp or view count
			for _, seg := range segments {
				if !hasDigit(FirstRunes(seg, 5)) {
					return seg
				}
			}
			return segments[len(segments)-1]
		}
	}

	return strings.TrimSpace(FirstRunes(text, maxClaimRunes))
}

func (n *ClaimNormalizer) hasMarker(text string) bool {
	for _, marker := range n.markers {
		if marker != "" && strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// splitSegments splits on the metadata separator and keeps the long segments
func splitSegments(text string) []string {
	var segments []string
	for _, part := range strings.Split(text, segmentSeparator) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > minSegmentRunes {
			segments = append(segments, part)
		}
	}
	return segments
}

// FirstRunes returns at most n runes of s without splitting a code point
func FirstRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
