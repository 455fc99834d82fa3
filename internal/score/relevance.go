package score

import (
	"regexp"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// negations are looked for in the five words before a supportive keyword
var negations = []string{"not", "no ", "cannot", "does not"}

const (
	negationWindow  = 5
	minMatchShare   = 0.15
	minMatches      = 2
	supportBoost    = 0.4
	negatedPenalty  = 0.3
	contraryPenalty = 0.2
	misinfoPenalty  = 0.2
	factCheckBoost  = 0.1
)

// RelevanceScorer estimates how closely an article's sentences discuss a
// claim. The result is informational; it does not affect the verdict.
type RelevanceScorer struct {
	positive  []string
	negative  []string
	misinfo   []string
	factCheck []string
	stop      map[string]bool
}

// NewRelevanceScorer builds a scorer from the keyword lists in cfg.
// A nil cfg uses the built-in lists.
func NewRelevanceScorer(cfg *model.TrustConfig) *RelevanceScorer {
	if cfg == nil {
		def := model.DefaultTrustConfig()
		cfg = &def
	}

	stop := make(map[string]bool, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stop[strings.ToLower(w)] = true
	}

	return &RelevanceScorer{
		positive:  lower(cfg.PositiveKeywords),
		negative:  lower(cfg.NegativeKeywords),
		misinfo:   lower(cfg.MisinfoKeywords),
		factCheck: lower(cfg.FactCheckKeywords),
		stop:      stop,
	}
}

// Score rates text against claim in [0,1]. When the text is empty, the claim
// has no usable keywords or no sentence matches, prior is returned.
func (s *RelevanceScorer) Score(claim, text string, prior float64) float64 {
	keywords := s.Keywords(claim)
	if strings.TrimSpace(text) == "" || len(keywords) == 0 {
		return prior
	}

	var total float64
	var count int
	for _, sentence := range SplitSentences(text) {
		sc := s.scoreSentence(sentence, keywords)
		if sc <= 0 {
			continue
		}
		weight := 1 + float64(len(strings.Fields(sentence)))/50
		if weight > 1.2 {
			weight = 1.2
		}
		total += sc * weight
		count++
	}

	if count == 0 {
		return prior
	}
	return clamp(total/float64(count), 0, 1)
}

// Keywords returns the lower-cased claim words longer than three letters
// that are not stop words
func (s *RelevanceScorer) Keywords(claim string) []string {
	var keywords []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(claim), -1) {
		if len(w) > 3 && !s.stop[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

func (s *RelevanceScorer) scoreSentence(sentence string, keywords []string) float64 {
	match := matchScore(strings.ToLower(sentence), keywords)
	if match == 0 {
		return 0
	}
	return clamp(match*(1+s.contextScore(sentence)), 0, 1)
}

func matchScore(sentence string, keywords []string) float64 {
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(sentence, kw) {
			matches++
		}
	}

	required := int(float64(len(keywords)) * minMatchShare)
	if required < minMatches {
		required = minMatches
	}
	if matches < required {
		return 0
	}

	fraction := float64(matches) / float64(len(keywords))
	boosted := fraction * densityMultiplier(fraction)
	if boosted > 1 {
		boosted = 1
	}
	return boosted
}

func densityMultiplier(fraction float64) float64 {
	switch {
	case fraction > 0.7:
		return 1.5
	case fraction > 0.5:
		return 1.3
	case fraction > 0.3:
		return 1.1
	}
	return 1.0
}

// contextScore starts neutral at 0.5 and moves with the language around
// the claim: supportive phrasing raises it unless negated, contrary phrasing
// and misinformation markers lower it, fact-checking vocabulary nudges it up.
func (s *RelevanceScorer) contextScore(sentence string) float64 {
	lowered := strings.ToLower(sentence)
	words := strings.Fields(lowered)
	score := 0.5

	for i := range words {
		if startsAny(words, i, s.positive) {
			from := i - negationWindow
			if from < 0 {
				from = 0
			}
			before := strings.Join(words[from:i], " ")
			if containsAny(before, negations) {
				score -= negatedPenalty
			} else {
				score += supportBoost
			}
		}
		if startsAny(words, i, s.negative) {
			score -= contraryPenalty
		}
	}

	for _, kw := range s.misinfo {
		if strings.Contains(lowered, kw) {
			score -= misinfoPenalty
		}
	}
	for _, kw := range s.factCheck {
		if strings.Contains(lowered, kw) {
			score += factCheckBoost
		}
	}

	return clamp(score, -0.5, 0.5)
}

// startsAny reports whether a keyword occurs at word i. Single-word keywords
// match inside the word ("proven" in "unproven,"), phrases must start there.
func startsAny(words []string, i int, keywords []string) bool {
	var rest string
	for _, kw := range keywords {
		if !strings.Contains(kw, " ") {
			if strings.Contains(words[i], kw) {
				return true
			}
			continue
		}
		if rest == "" {
			end := i + 4
			if end > len(words) {
				end = len(words)
			}
			rest = strings.Join(words[i:end], " ")
		}
		if strings.HasPrefix(rest, kw) {
			return true
		}
	}
	return false
}

// SplitSentences splits after '.', '!' or '?' followed by spaces
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) && text[j] == ' ' {
			j++
		}
		if j == i+1 {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j - 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lower(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
