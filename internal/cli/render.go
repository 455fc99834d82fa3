package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// jsonResult adds the diagnostics that the wire format leaves out
type jsonResult struct {
	*model.FactCheckResult
	ClaimID    string  `json:"claim_id,omitempty"`
	Query      string  `json:"query,omitempty"`
	RawVerdict string  `json:"raw_verdict"`
	Confidence float64 `json:"confidence"`
	KeyQuotes  string  `json:"key_quotes,omitempty"`
	Status     string  `json:"status"`
}

func toJSONResult(r *model.FactCheckResult) jsonResult {
	return jsonResult{
		FactCheckResult: r,
		ClaimID:         r.ClaimID,
		Query:           r.Query,
		RawVerdict:      r.Raw.Verdict,
		Confidence:      float64(r.Raw.Confidence),
		KeyQuotes:       string(r.Raw.KeyQuotes),
		Status:          string(r.Status),
	}
}

// renderJSON writes one result as indented JSON
func renderJSON(w io.Writer, r *model.FactCheckResult) error {
	return encode(w, toJSONResult(r))
}

// renderJSONList writes results as an indented JSON array
func renderJSONList(w io.Writer, results []*model.FactCheckResult) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, toJSONResult(r))
	}
	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderText writes a human-readable report of one result
func renderText(w io.Writer, r *model.FactCheckResult) error {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "  Claim:    %s\n", r.Claim)
	fmt.Fprintf(&b, "  Verdict:  %s (%d%%)\n", r.Verdict, r.Score)
	if r.Raw.Verdict != "" && !strings.EqualFold(r.Raw.Verdict, string(r.Verdict)) {
		fmt.Fprintf(&b, "  Model:    %s\n", r.Raw.Verdict)
	}
	fmt.Fprintln(&b, rule)

	if r.ExplanationSnippet != "" {
		fmt.Fprintf(&b, "\nSummary:\n  %s\n", r.ExplanationSnippet)
	}
	if r.Explanation != "" && r.Explanation != r.ExplanationSnippet {
		fmt.Fprintf(&b, "\nReasoning:\n  %s\n", r.Explanation)
	}
	if quotes := strings.TrimSpace(string(r.Raw.KeyQuotes)); quotes != "" {
		fmt.Fprintln(&b, "\nKey quotes:")
		for _, line := range strings.Split(quotes, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&b, "  > %s\n", line)
			}
		}
	}

	if len(r.Sources) > 0 {
		fmt.Fprintln(&b, "\nSources:")
		for i, src := range r.Sources {
			tier := ""
			if i < len(r.Evidence) && r.Evidence[i].URL == src.Link {
				tier = fmt.Sprintf(" [%s trust]", r.Evidence[i].Trust)
			}
			title := src.Title
			if title == "" {
				title = src.Link
			}
			fmt.Fprintf(&b, "  %d. %s%s\n     %s\n", i+1, title, tier, src.Link)
		}
	} else {
		fmt.Fprintln(&b, "\nSources: none")
	}
	fmt.Fprintln(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

// renderSummary writes the tally printed after a batch
func renderSummary(w io.Writer, results []*model.FactCheckResult) error {
	counts := make(map[model.Verdict]int)
	for _, r := range results {
		counts[r.Verdict]++
	}

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "  Batch complete: %d claims\n", len(results))
	fmt.Fprintln(&b, rule)
	for _, v := range model.Verdicts {
		if n := counts[v]; n > 0 {
			fmt.Fprintf(&b, "  %-18s %d\n", v+":", n)
		}
	}
	fmt.Fprintln(&b)

	_, err := io.WriteString(w, b.String())
	return err
}
