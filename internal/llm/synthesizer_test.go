package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *CompletionResponse
	err       error
	prompt    string
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.prompt = req.Prompt
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func sampleEvidence() []model.Evidence {
	return []model.Evidence{
		{Title: "Water boils at 100C", URL: "https://www.reuters.com/a", Trust: model.TrustHigh, Text: "At sea level water boils at 100 degrees."},
		{Title: "Boiling point explained", URL: "https://www.bbc.com/b", Trust: model.TrustMedium, Text: "Altitude lowers the boiling point."},
	}
}

func TestSynthesize_DirectJSON(t *testing.T) {
	provider := &MockProvider{name: "mock", response: &CompletionResponse{
		Text: `{"verdict":"TRUE","confidence":0.92,"summary":"Supported","reasoning":"Both agree","key_quotes":"boils at 100"}`,
	}}
	s := NewSynthesizer(provider, 0, nil)

	got := s.Synthesize(context.Background(), "Water boils at 100C", sampleEvidence())
	if got.Verdict != model.LabelTrue {
		t.Errorf("Expected TRUE, got %s", got.Verdict)
	}
	if got.Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %v", got.Confidence)
	}
	if got.KeyQuotes != "boils at 100" {
		t.Errorf("Unexpected key quotes %q", got.KeyQuotes)
	}
}

func TestSynthesize_TransportError(t *testing.T) {
	longErr := errors.New(strings.Repeat("x", 300))
	provider := &MockProvider{name: "mock", err: longErr}
	s := NewSynthesizer(provider, 0, nil)

	got := s.Synthesize(context.Background(), "claim", sampleEvidence())
	if got.Verdict != model.LabelError {
		t.Errorf("Expected ERROR, got %s", got.Verdict)
	}
	if got.Summary != "LLM processing failed" {
		t.Errorf("Unexpected summary %q", got.Summary)
	}
	if got.Reasoning != "Error: "+strings.Repeat("x", 100) {
		t.Errorf("Expected error truncated to 100 chars, got %d chars", len(got.Reasoning))
	}
	if got.Confidence != 0 {
		t.Errorf("Expected zero confidence, got %v", got.Confidence)
	}
}

func TestSynthesize_EmptyResponse(t *testing.T) {
	tests := []struct {
		name     string
		response *CompletionResponse
	}{
		{"nil response", nil},
		{"empty text", &CompletionResponse{Text: ""}},
		{"whitespace", &CompletionResponse{Text: "  \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(&MockProvider{name: "mock", response: tt.response}, 0, nil)
			got := s.Synthesize(context.Background(), "claim", nil)
			if got.Verdict != model.LabelError || got.Summary != "LLM did not respond" {
				t.Errorf("Unexpected verdict %+v", got)
			}
			if got.Reasoning != "LLM server returned empty response" {
				t.Errorf("Unexpected reasoning %q", got.Reasoning)
			}
		})
	}
}

func TestSynthesize_SendsPrompt(t *testing.T) {
	provider := &MockProvider{name: "mock", response: &CompletionResponse{Text: `{"verdict":"MIXED"}`}}
	s := NewSynthesizer(provider, 0, nil)

	s.Synthesize(context.Background(), "Water boils at 100C", sampleEvidence())
	if !strings.Contains(provider.prompt, `CLAIM TO VERIFY: "Water boils at 100C"`) {
		t.Error("Prompt does not contain the claim")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Water boils at 100C", sampleEvidence())

	if !strings.Contains(prompt, "[HIGH TRUST] Water boils at 100C\nURL: https://www.reuters.com/a\n\nAt sea level") {
		t.Error("High trust item not formatted as expected")
	}
	if !strings.Contains(prompt, "[MEDIUM TRUST] Boiling point explained") {
		t.Error("Medium trust label missing")
	}
	if strings.Count(prompt, SourceBreak) != 1 {
		t.Errorf("Expected exactly one source break, got %d", strings.Count(prompt, SourceBreak))
	}
	if !strings.Contains(prompt, "Return ONLY the JSON object, nothing else") {
		t.Error("Prompt missing closing guideline")
	}
}

func TestBuildPrompt_TruncatesEvidence(t *testing.T) {
	ev := []model.Evidence{{Title: "t", URL: "https://x", Trust: model.TrustHigh, Text: strings.Repeat("é", model.MaxEvidenceText+50)}}
	prompt := BuildPrompt("claim", ev)

	if got := strings.Count(prompt, "é"); got != model.MaxEvidenceText {
		t.Errorf("Expected %d evidence runes, got %d", model.MaxEvidenceText, got)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantOutcome ParseOutcome
		wantVerdict string
	}{
		{
			name:        "direct object",
			raw:         `{"verdict":"FALSE","confidence":0.8}`,
			wantOutcome: ParsedDirect,
			wantVerdict: model.LabelFalse,
		},
		{
			name:        "object wrapped in prose",
			raw:         "Sure! Here is my analysis:\n{\"verdict\":\"MIXED\",\"confidence\":0.55}\nHope this helps.",
			wantOutcome: ParsedExtracted,
			wantVerdict: model.LabelMixed,
		},
		{
			name:        "markdown fence",
			raw:         "```json\n{\"verdict\":\"TRUE\"}\n```",
			wantOutcome: ParsedExtracted,
			wantVerdict: model.LabelTrue,
		},
		{
			name:        "no braces",
			raw:         "I cannot determine this.",
			wantOutcome: ParseFailed,
			wantVerdict: model.LabelParseError,
		},
		{
			name:        "json null",
			raw:         "null",
			wantOutcome: ParseFailed,
			wantVerdict: model.LabelParseError,
		},
		{
			name:        "broken object",
			raw:         `{"verdict": "TRUE", "confidence": }`,
			wantOutcome: ParseFailed,
			wantVerdict: model.LabelParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.raw)
			if got.Outcome != tt.wantOutcome {
				t.Errorf("Expected outcome %s, got %s", tt.wantOutcome, got.Outcome)
			}
			if got.Verdict.Verdict != tt.wantVerdict {
				t.Errorf("Expected verdict %s, got %s", tt.wantVerdict, got.Verdict.Verdict)
			}
			if tt.wantOutcome == ParseFailed && got.Err == nil {
				t.Error("Expected an error on failed parse")
			}
		})
	}
}

func TestParseResponse_FailureSnippet(t *testing.T) {
	raw := strings.Repeat("a", 400)
	got := ParseResponse(raw)

	if got.Verdict.Summary != "Could not parse LLM response" {
		t.Errorf("Unexpected summary %q", got.Verdict.Summary)
	}
	if got.Verdict.Reasoning != "Raw response: "+strings.Repeat("a", 150) {
		t.Errorf("Expected 150 char snippet, got %d chars", len(got.Verdict.Reasoning))
	}
}

func TestParseResponse_LenientFields(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantConfidence model.Confidence
		wantQuotes     model.Quotes
	}{
		{
			name:           "quoted confidence and string list",
			raw:            `{"verdict":"TRUE","confidence":"0.85","key_quotes":["first","second"]}`,
			wantConfidence: 0.85,
			wantQuotes:     "first\nsecond",
		},
		{
			name:           "list of quote objects",
			raw:            `{"verdict":"TRUE","confidence":0.92,"key_quotes":[{"quote":"boils at 100C", "source":"nih.gov"}]}`,
			wantConfidence: 0.92,
			wantQuotes:     `[{"quote":"boils at 100C","source":"nih.gov"}]`,
		},
		{
			name:           "quotes as object",
			raw:            `{"verdict":"TRUE","confidence":0.92,"key_quotes":{"nih.gov": "boils at 100C"}}`,
			wantConfidence: 0.92,
			wantQuotes:     `{"nih.gov":"boils at 100C"}`,
		},
		{
			name:           "mixed list",
			raw:            `{"verdict":"TRUE","confidence":0.92,"key_quotes":["a", 2]}`,
			wantConfidence: 0.92,
			wantQuotes:     `["a",2]`,
		},
		{
			name:           "word confidence",
			raw:            `{"verdict":"TRUE","confidence":"high","key_quotes":"boils at 100C"}`,
			wantConfidence: 0,
			wantQuotes:     "boils at 100C",
		},
		{
			name:           "boolean confidence and null quotes",
			raw:            `{"verdict":"TRUE","confidence":true,"key_quotes":null}`,
			wantConfidence: 0,
			wantQuotes:     "",
		},
		{
			name:           "percent confidence",
			raw:            `{"verdict":"TRUE","confidence":"92%"}`,
			wantConfidence: 92,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.raw)
			if got.Outcome != ParsedDirect {
				t.Fatalf("Expected direct parse, got %s (%v)", got.Outcome, got.Err)
			}
			if got.Verdict.Verdict != model.LabelTrue {
				t.Errorf("Expected verdict TRUE to survive, got %q", got.Verdict.Verdict)
			}
			if got.Verdict.Confidence != tt.wantConfidence {
				t.Errorf("Expected confidence %v, got %v", tt.wantConfidence, got.Verdict.Confidence)
			}
			if got.Verdict.KeyQuotes != tt.wantQuotes {
				t.Errorf("Expected quotes %q, got %q", tt.wantQuotes, got.Verdict.KeyQuotes)
			}
		})
	}
}

func TestParseResponse_ProseMatchesDirect(t *testing.T) {
	object := `{"verdict": "TRUE", "confidence": 0.92, "summary": "Water boils at 100C at sea level.", ` +
		`"reasoning": "Both sources agree.", "key_quotes": "boils at 100 degrees Celsius"}`

	direct := ParseResponse(object)
	require.Equal(t, ParsedDirect, direct.Outcome)

	wrapped := ParseResponse("Here is my assessment of the evidence:\n\n" + object + "\n\nLet me know if you need more.")
	require.Equal(t, ParsedExtracted, wrapped.Outcome)

	require.Equal(t, direct.Verdict, wrapped.Verdict)
	require.Equal(t, model.RawVerdict{
		Verdict:    model.LabelTrue,
		Confidence: 0.92,
		Summary:    "Water boils at 100C at sea level.",
		Reasoning:  "Both sources agree.",
		KeyQuotes:  "boils at 100 degrees Celsius",
	}, direct.Verdict)
}
