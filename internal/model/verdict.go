package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Raw verdict labels. The first four come from the model, the rest are
// produced locally when the model could not be asked or understood.
const (
	LabelTrue             = "TRUE"
	LabelFalse            = "FALSE"
	LabelMixed            = "MIXED"
	LabelUnverifiable     = "UNVERIFIABLE"
	LabelError            = "ERROR"
	LabelParseError       = "PARSE ERROR"
	LabelNoTrustedSources = "NO TRUSTED SOURCES"
	LabelInsufficientData = "INSUFFICIENT DATA"
)

// RawVerdict is the verdict in the language model's own vocabulary
type RawVerdict struct {
	Verdict    string     `json:"verdict"`
	Confidence Confidence `json:"confidence"`
	Summary    string     `json:"summary"`
	Reasoning  string     `json:"reasoning"`
	KeyQuotes  Quotes     `json:"key_quotes"`
}

// Confidence is a model-reported probability. Models sometimes quote the
// number, so both 0.9 and "0.9" decode.
type Confidence float64

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else,
// including words like "high", decodes to 0 so one odd field does not
// discard the whole verdict.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	*c = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*c = Confidence(f)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err == nil {
			*c = Confidence(f)
		}
	}
	return nil
}

// Quotes holds the key quotes a model cited. The prompt asks for a string
// but models frequently answer with a list, sometimes of objects.
type Quotes string

// UnmarshalJSON accepts a string or an array of strings, joined by
// newlines. Any other value is kept as its compacted JSON text.
func (q *Quotes) UnmarshalJSON(data []byte) error {
	*q = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*q = Quotes(s)
			return nil
		}
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err == nil {
			*q = Quotes(strings.Join(items, "\n"))
			return nil
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		*q = Quotes(data)
		return nil
	}
	*q = Quotes(buf.String())
	return nil
}

// Verdict is the closed set of verdict strings the downstream store accepts
type Verdict string

const (
	VerdictLikelyTrue      Verdict = "Likely True"
	VerdictLikelyFalse     Verdict = "Likely False"
	VerdictUncertain       Verdict = "Uncertain"
	VerdictUnverified      Verdict = "Unverified"
	VerdictPartiallyTrue   Verdict = "Partially True"
	VerdictPartiallyFalse  Verdict = "Partially False"
	VerdictVeryLikelyFalse Verdict = "Very Likely False"
)

// Verdicts lists every value of the closed enumeration
var Verdicts = []Verdict{
	VerdictLikelyTrue,
	VerdictLikelyFalse,
	VerdictUncertain,
	VerdictUnverified,
	VerdictPartiallyTrue,
	VerdictPartiallyFalse,
	VerdictVeryLikelyFalse,
}

// IsValid reports whether v belongs to the closed enumeration
func (v Verdict) IsValid() bool {
	for _, known := range Verdicts {
		if v == known {
			return true
		}
	}
	return false
}

// SourceRecord is the per-source shape the downstream backend stores
type SourceRecord struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// FactCheckResult is the final unit handed to the store, webhook and publisher.
// Only the tagged fields are part of the wire payload.
type FactCheckResult struct {
	Claim              string         `json:"claim"`
	Verdict            Verdict        `json:"verdict"`
	Score              int            `json:"score"`
	ExplanationSnippet string         `json:"explanation_snippet"`
	URLs               []string       `json:"urls"`
	Explanation        string         `json:"explanation"`
	Sources            []SourceRecord `json:"sources"`

	ClaimID   string            `json:"-"`
	Query     string            `json:"-"` // Cleaned claim text that was searched
	Status    AggregationStatus `json:"-"`
	Raw       RawVerdict        `json:"-"`
	Evidence  []Evidence        `json:"-"`
	CheckedAt time.Time         `json:"-"`
}

// IsDegraded reports whether the result was produced without asking the model
func (r *FactCheckResult) IsDegraded() bool {
	return r.Status == StatusNoResults || r.Status == StatusNoTrustedSources
}
