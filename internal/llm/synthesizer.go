package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/observability"
)

// SourceBreak separates evidence items inside the prompt
const SourceBreak = "\n\n---SOURCE BREAK---\n\n"

const (
	synthesisTimeout   = 30 * time.Second
	maxErrorChars      = 100
	maxRawSnippetRunes = 150
)

// Synthesizer asks a language model for a verdict over aggregated evidence
type Synthesizer struct {
	provider Provider
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewSynthesizer creates a synthesizer. A non-positive timeout uses 30s.
func NewSynthesizer(provider Provider, timeout time.Duration, logger *slog.Logger) *Synthesizer {
	if timeout <= 0 {
		timeout = synthesisTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		provider: provider,
		timeout:  timeout,
		logger:   logger.With("component", "synthesizer"),
	}
}

// SetMetrics attaches LLM latency metrics
func (s *Synthesizer) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Synthesize returns the model's verdict on claim. Transport failures,
// empty answers and unparseable output all come back as sentinel verdicts;
// it never returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, claim string, evidence []model.Evidence) model.RawVerdict {
	prompt := BuildPrompt(claim, evidence)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.provider.Complete(ctx, CompletionRequest{Prompt: prompt})
	s.metrics.ObserveLLM(time.Since(start), err)

	if err != nil {
		s.logger.Warn("llm request failed", "provider", s.provider.Name(), "error", err)
		return model.RawVerdict{
			Verdict:   model.LabelError,
			Summary:   "LLM processing failed",
			Reasoning: "Error: " + truncateRunes(err.Error(), maxErrorChars),
		}
	}

	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		s.logger.Warn("llm returned empty response", "provider", s.provider.Name())
		return model.RawVerdict{
			Verdict:   model.LabelError,
			Summary:   "LLM did not respond",
			Reasoning: "LLM server returned empty response",
		}
	}

	result := ParseResponse(resp.Text)
	if result.Outcome == ParseFailed {
		s.logger.Warn("could not parse llm response", "error", result.Err)
	} else {
		s.logger.Debug("parsed llm response", "outcome", result.Outcome.String(), "verdict", result.Verdict.Verdict)
	}
	return result.Verdict
}

// BuildPrompt assembles the fact-checking prompt. Each evidence item is
// labeled with its trust tier, title and URL, its text capped at
// model.MaxEvidenceText characters.
func BuildPrompt(claim string, evidence []model.Evidence) string {
	items := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		items = append(items, fmt.Sprintf("[%s TRUST] %s\nURL: %s\n\n%s",
			strings.ToUpper(ev.Trust.String()), ev.Title, ev.URL, truncateRunes(ev.Text, model.MaxEvidenceText)))
	}

	return fmt.Sprintf(`You are a fact-checker. Analyze these articles from trusted sources and determine if the claim is accurate.

CLAIM TO VERIFY: "%s"

ARTICLES FROM TRUSTED SOURCES:
%s

Analyze ALL the sources above and provide a final verdict. Consider:
1. Do the sources support, contradict, or are neutral about the claim?
2. Is there consensus among sources?
3. Are there important caveats or nuances?

Respond ONLY with valid JSON (no markdown, no extra text, no explanation before or after):
{
    "verdict": "TRUE" or "FALSE" or "MIXED" or "UNVERIFIABLE",
    "confidence": 0.95,
    "summary": "One sentence summary of finding",
    "reasoning": "2-3 sentences explaining the consensus from sources",
    "key_quotes": "Most relevant quote(s) from the sources"
}

Guidelines:
- verdict: TRUE if sources clearly support, FALSE if clearly contradict, MIXED if conflicting, UNVERIFIABLE if insufficient
- confidence: 0.9-1.0 for clear verdicts, 0.7-0.8 for most aligned with nuance, 0.5-0.6 for mixed/conflicting, below 0.5 for insufficient
- Return ONLY the JSON object, nothing else`, claim, strings.Join(items, SourceBreak))
}

// ParseOutcome says which parsing tier produced a ParseResult
type ParseOutcome int

const (
	// ParsedDirect means the whole response was a JSON object
	ParsedDirect ParseOutcome = iota
	// ParsedExtracted means the object was cut out of surrounding prose
	ParsedExtracted
	// ParseFailed means no object could be recovered
	ParseFailed
)

func (o ParseOutcome) String() string {
	switch o {
	case ParsedDirect:
		return "direct"
	case ParsedExtracted:
		return "extracted"
	default:
		return "failed"
	}
}

// ParseResult is the outcome of parsing one model response. Verdict is
// always usable: on ParseFailed it holds the PARSE ERROR sentinel.
type ParseResult struct {
	Outcome ParseOutcome
	Verdict model.RawVerdict
	Err     error
}

// ParseResponse recovers a RawVerdict from model output. It tries the whole
// text, then the span from the first '{' to the last '}', then gives up with
// a PARSE ERROR verdict carrying the start of the raw text.
func ParseResponse(raw string) ParseResult {
	var verdict model.RawVerdict

	// Only an object counts; "null" would otherwise decode into a zero verdict
	directErr := fmt.Errorf("response is not a JSON object")
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		directErr = json.Unmarshal([]byte(raw), &verdict)
		if directErr == nil {
			return ParseResult{Outcome: ParsedDirect, Verdict: verdict}
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		verdict = model.RawVerdict{}
		extractErr := json.Unmarshal([]byte(raw[start:end+1]), &verdict)
		if extractErr == nil {
			return ParseResult{Outcome: ParsedExtracted, Verdict: verdict}
		}
		directErr = fmt.Errorf("extracted object: %w", extractErr)
	}

	return ParseResult{
		Outcome: ParseFailed,
		Verdict: model.RawVerdict{
			Verdict:   model.LabelParseError,
			Summary:   "Could not parse LLM response",
			Reasoning: "Raw response: " + truncateRunes(raw, maxRawSnippetRunes),
		},
		Err: directErr,
	}
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
