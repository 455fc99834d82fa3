package model

import (
	"fmt"
	"strings"
)

const (
	// MaxEvidenceText caps the extracted article text kept per source
	MaxEvidenceText = 5000

	// MinEvidenceText is the length an extraction must exceed to count as evidence
	MinEvidenceText = 100
)

// Evidence is readable article text taken from a trusted search result
type Evidence struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Trust     TrustTier `json:"trust"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"` // Keyword-density score, informational only
}

// TrustTier is the coarse reliability class of a source domain
type TrustTier int

const (
	TrustLow    TrustTier = 0 // Unlisted domains, blogs, social media
	TrustMedium TrustTier = 1 // Major news outlets, science publishers, reference works
	TrustHigh   TrustTier = 2 // Government, academic, peer-reviewed journals
)

func (t TrustTier) String() string {
	switch t {
	case TrustHigh:
		return "high"
	case TrustMedium:
		return "medium"
	default:
		return "low"
	}
}

// IsTrusted reports whether sources of this tier are worth extracting
func (t TrustTier) IsTrusted() bool {
	return t == TrustHigh || t == TrustMedium
}

// MarshalText renders the tier by name
func (t TrustTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name
func (t *TrustTier) UnmarshalText(text []byte) error {
	tier, err := ParseTrustTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseTrustTier converts a tier name into a TrustTier
func ParseTrustTier(s string) (TrustTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TrustHigh, nil
	case "medium":
		return TrustMedium, nil
	case "low", "":
		return TrustLow, nil
	default:
		return TrustLow, fmt.Errorf("unknown trust tier: %q", s)
	}
}

// AggregationStatus describes the outcome of evidence aggregation
type AggregationStatus string

const (
	StatusOK               AggregationStatus = "OK"
	StatusNoResults        AggregationStatus = "NO_RESULTS"
	StatusNoTrustedSources AggregationStatus = "NO_TRUSTED_SOURCES"
)
