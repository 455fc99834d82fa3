package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClaimNormalizer_PlainClaim(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	got := normalizer.Clean("  The Great Wall of China is visible from space.  ")
	if got != "The Great Wall of China is visible from space." {
		t.Errorf("Expected trimmed claim, got %q", got)
	}
}

func TestClaimNormalizer_TruncatesLongClaims(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	long := strings.Repeat("a", 350)
	got := normalizer.Clean(long)
	if len(got) != 200 {
		t.Errorf("Expected 200 chars, got %d", len(got))
	}
}

func TestClaimNormalizer_TruncationIsRuneSafe(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	long := strings.Repeat("é", 300)
	got := normalizer.Clean(long)
	if !utf8.ValidString(got) {
		t.Fatal("Expected valid UTF-8 after truncation")
	}
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Errorf("Expected 200 runes, got %d", n)
	}
}

func TestClaimNormalizer_VideoMetadata(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	tests := []struct {
		input    string
		expected string
		desc     string
	}{
		{
			input:    "1.2M views · Drinking bleach cures the common cold · YouTube",
			expected: "Drinking bleach cures the common cold",
			desc:     "Skips view count segment",
		},
		{
			input:    "12 hours ago · 2024 footage shows the moon landing was staged · youtube.com",
			expected: "2024 footage shows the moon landing was staged",
			desc:     "Falls back to last long segment when all start with digits",
		},
		{
			input:    "Vaccines contain microchips for tracking people · YouTube",
			expected: "Vaccines contain microchips for tracking people",
			desc:     "First qualifying segment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := normalizer.Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestClaimNormalizer_VideoMarkerWithoutLongSegments(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	input := "short · YouTube · 3:45"
	if got := normalizer.Clean(input); got != input {
		t.Errorf("Expected fallback to input, got %q", got)
	}
}

func TestClaimNormalizer_MarkerIsCaseSensitive(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	// "youtube" alone is not a marker, so the separator is left alone
	input := "watch on youtube · Coffee consumption reduces the risk of stroke"
	if got := normalizer.Clean(input); got != input {
		t.Errorf("Expected unchanged claim, got %q", got)
	}
}

func TestClaimNormalizer_CustomMarkers(t *testing.T) {
	normalizer := NewClaimNormalizer([]string{"TikTok"})

	got := normalizer.Clean("TikTok · Eating carrots improves night vision dramatically")
	if got != "Eating carrots improves night vision dramatically" {
		t.Errorf("Unexpected result %q", got)
	}
}

func TestClaimNormalizer_Empty(t *testing.T) {
	normalizer := NewClaimNormalizer(nil)

	if got := normalizer.Clean(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
	if got := normalizer.Clean("   "); got != "" {
		t.Errorf("Expected empty for whitespace, got %q", got)
	}
}
