package score

import (
	"math"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestNormalize_Labels(t *testing.T) {
	tests := []struct {
		label string
		want  model.Verdict
	}{
		{"TRUE", model.VerdictLikelyTrue},
		{"  true ", model.VerdictLikelyTrue},
		{"FALSE", model.VerdictLikelyFalse},
		{"MIXED", model.VerdictUncertain},
		{"UNVERIFIABLE", model.VerdictUnverified},
		{"ERROR", model.VerdictUnverified},
		{"PARSE ERROR", model.VerdictUnverified},
		{"NO TRUSTED SOURCES", model.VerdictUnverified},
		{"INSUFFICIENT DATA", model.VerdictUnverified},
		{"", model.VerdictUnverified},
		{"banana", model.VerdictUnverified},
		{"Likely True", model.VerdictLikelyTrue},
		{"likely false", model.VerdictLikelyFalse},
		{"Uncertain", model.VerdictUncertain},
		{"Unverified", model.VerdictUnverified},
		{"Partially True", model.VerdictPartiallyTrue},
		{"Partially False", model.VerdictPartiallyFalse},
		{"Very Likely False", model.VerdictVeryLikelyFalse},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, _ := Normalize(model.RawVerdict{Verdict: tt.label})
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.label, got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("Normalize(%q) produced value outside the closed set", tt.label)
			}
		})
	}
}

func TestNormalize_FixedPoints(t *testing.T) {
	for _, v := range model.Verdicts {
		if got := NormalizeLabel(string(v)); got != v {
			t.Errorf("NormalizeLabel(%q) = %q, want itself", v, got)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       int
	}{
		{"typical", 0.92, 92},
		{"rounds", 0.856, 86},
		{"zero", 0, 0},
		{"one", 1, 100},
		{"above one", 1.7, 100},
		{"percentage given as number", 85, 100},
		{"negative", -0.4, 0},
		{"nan", math.NaN(), 0},
		{"infinity", math.Inf(1), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.confidence); got != tt.want {
				t.Errorf("Percent(%v) = %d, want %d", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestNormalize_Score(t *testing.T) {
	verdict, pct := Normalize(model.RawVerdict{Verdict: "FALSE", Confidence: 0.3})
	if verdict != model.VerdictLikelyFalse || pct != 30 {
		t.Errorf("Got %s/%d, want Likely False/30", verdict, pct)
	}
}
