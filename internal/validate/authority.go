package validate

import (
	"net/url"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// TrustClassifier classifies source URLs into trust tiers
type TrustClassifier struct {
	high   []string
	medium []string
	low    []string
}

// NewTrustClassifier creates a classifier from the configured allow-lists
func NewTrustClassifier(config *model.TrustConfig) *TrustClassifier {
	if config == nil {
		defaults := model.DefaultTrustConfig()
		config = &defaults
	}

	return &TrustClassifier{
		high:   lowerAll(config.HighTrust),
		medium: lowerAll(config.MediumTrust),
		low:    lowerAll(config.LowTrust),
	}
}

// Classify classifies a URL into a trust tier.
// Matching is substring containment on the lower-cased network location,
// so ".gov" matches every government host and "x.com" also matches "fox.com".
func (c *TrustClassifier) Classify(rawURL string) model.TrustTier {
	host := hostOf(rawURL)
	if host == "" {
		return model.TrustLow
	}

	if containsAny(host, c.high) {
		return model.TrustHigh
	}
	if containsAny(host, c.medium) {
		return model.TrustMedium
	}
	return model.TrustLow
}

// DomainTrust returns a prior in [0,1] for a URL's domain. It is only a
// starting point for relevance scoring.
func (c *TrustClassifier) DomainTrust(rawURL string) float64 {
	host := hostOf(rawURL)
	score := 0.5

	switch {
	case host == "":
	case containsAny(host, c.high):
		score += 0.6
	case containsAny(host, c.medium):
		score += 0.3
	case containsAny(host, c.low):
		score -= 0.3
	}

	return clamp01(score)
}

// hostOf returns the lower-cased network location, port included
func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

func containsAny(host string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(host, needle) {
			return true
		}
	}
	return false
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.ToLower(strings.TrimSpace(item)))
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
