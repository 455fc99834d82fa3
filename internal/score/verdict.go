package score

import (
	"math"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// labelTable maps the model's raw labels onto the closed verdict set
var labelTable = map[string]model.Verdict{
	model.LabelTrue:  model.VerdictLikelyTrue,
	model.LabelFalse: model.VerdictLikelyFalse,
	model.LabelMixed: model.VerdictUncertain,
}

// Normalize converts a raw verdict into a closed-set verdict and a 0-100
// score. Unknown labels, including the local sentinels, become Unverified.
// Labels that already are closed-set values map to themselves.
func Normalize(raw model.RawVerdict) (model.Verdict, int) {
	return NormalizeLabel(raw.Verdict), Percent(float64(raw.Confidence))
}

// NormalizeLabel maps a single label
func NormalizeLabel(label string) model.Verdict {
	trimmed := strings.TrimSpace(label)
	key := strings.ToUpper(trimmed)

	if v, ok := labelTable[key]; ok {
		return v
	}
	for _, v := range model.Verdicts {
		if strings.EqualFold(trimmed, string(v)) {
			return v
		}
	}
	return model.VerdictUnverified
}

// Percent turns a confidence into an integer percentage in [0,100]
func Percent(confidence float64) int {
	if math.IsNaN(confidence) {
		return 0
	}
	p := math.Round(confidence * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
