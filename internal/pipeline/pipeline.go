package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/observability"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/validate"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// maxSourceSnippet bounds the text excerpt stored with each source record
const maxSourceSnippet = 300

// EvidenceSource gathers evidence for a claim
type EvidenceSource interface {
	Aggregate(ctx context.Context, claim string) ([]model.Evidence, model.AggregationStatus)
}

// VerdictSynthesizer asks a model for a verdict
type VerdictSynthesizer interface {
	Synthesize(ctx context.Context, claim string, evidence []model.Evidence) model.RawVerdict
}

// Pipeline orchestrates the complete fact-check of a claim
type Pipeline struct {
	evidence     EvidenceSource
	synthesizer  VerdictSynthesizer
	claimWorkers int
	normalizer   *extract.ClaimNormalizer
	metrics      *observability.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewPipeline wires the search, extraction and LLM collaborators described
// by cfg. metrics may be nil.
func NewPipeline(cfg *model.Config, logger *slog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	synthesizer := llm.NewSynthesizer(provider, time.Duration(cfg.LLM.Timeout)*time.Second, logger)
	synthesizer.SetMetrics(metrics)

	fetcher := NewFetcher(cfg, logger)
	fetcher.SetMetrics(metrics)

	aggregator := NewAggregator(
		search.NewGoogle(cfg.Search, logger),
		fetcher,
		extract.NewClaimNormalizer(cfg.Trust.VideoMarkers),
		validate.NewTrustClassifier(&cfg.Trust),
		score.NewRelevanceScorer(&cfg.Trust),
		cfg.Concurrency.ExtractWorkers,
		logger,
	)
	aggregator.SetMetrics(metrics)

	p := New(aggregator, synthesizer, cfg.Concurrency.ClaimWorkers, logger)
	p.normalizer = extract.NewClaimNormalizer(cfg.Trust.VideoMarkers)
	p.metrics = metrics
	return p, nil
}

// New creates a pipeline from its collaborators. claimWorkers caps
// concurrent batch checks; zero or less checks every claim at once.
func New(evidence EvidenceSource, synthesizer VerdictSynthesizer, claimWorkers int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		evidence:     evidence,
		synthesizer:  synthesizer,
		claimWorkers: claimWorkers,
		normalizer:   extract.NewClaimNormalizer(nil),
		logger:       logger.With("component", "pipeline"),
		now:          time.Now,
	}
}

// SetMetrics attaches result counters
func (p *Pipeline) SetMetrics(m *observability.Metrics) {
	p.metrics = m
}

// Check fact-checks a single claim. It always returns a result; failures
// along the way show up as degraded or Unverified results.
func (p *Pipeline) Check(ctx context.Context, text string) *model.FactCheckResult {
	return p.CheckClaim(ctx, model.Claim{Text: text})
}

// CheckClaim is Check for a stored claim; the claim ID and the cleaned
// search query are kept on the result
func (p *Pipeline) CheckClaim(ctx context.Context, claim model.Claim) *model.FactCheckResult {
	if claim.Cleaned == "" {
		claim.Cleaned = p.normalizer.Clean(claim.Text)
	}

	log := p.logger.With("claim", claim.Text, "query", claim.Cleaned)
	if claim.ID != "" {
		log = log.With("claim_id", claim.ID)
	}

	evidence, status := p.evidence.Aggregate(ctx, claim.Text)

	var result *model.FactCheckResult
	switch status {
	case model.StatusNoResults:
		result = degraded(claim.Text, status, model.LabelInsufficientData, 0.2, "No search results found")
	case model.StatusNoTrustedSources:
		result = degraded(claim.Text, status, model.LabelNoTrustedSources, 0.3, "Search results only from low-trust domains")
	default:
		raw := p.synthesizer.Synthesize(ctx, claim.Text, evidence)
		result = assemble(claim.Text, raw, evidence)
	}

	result.ClaimID = claim.ID
	result.Query = claim.Cleaned
	result.CheckedAt = p.now().UTC()

	log.Info("claim checked",
		"status", string(result.Status),
		"raw_verdict", result.Raw.Verdict,
		"verdict", string(result.Verdict),
		"score", result.Score,
		"sources", len(result.Sources))
	p.metrics.ObserveResult(string(result.Verdict))

	return result
}

// RunSequential checks claims one after another. Cancellation is observed
// between claims; claims not reached get an ERROR result so the output
// still has one entry per input.
func (p *Pipeline) RunSequential(ctx context.Context, texts []string) []*model.FactCheckResult {
	results := make([]*model.FactCheckResult, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("batch cancelled", "checked", i, "total", len(texts))
			for _, rest := range texts[i:] {
				results = append(results, failed(rest, fmt.Errorf("claim was not checked: %w", err), p.now().UTC()))
			}
			break
		}
		results = append(results, p.Check(ctx, text))
	}
	return results
}

// RunConcurrent checks all claims in parallel. Results are in input order;
// a claim whose check panicked or never ran gets an ERROR result.
func (p *Pipeline) RunConcurrent(ctx context.Context, texts []string) []*model.FactCheckResult {
	batch := worker.NewBatchProcessor(p, p.claimWorkers).ProcessClaims(ctx, texts)

	results := make([]*model.FactCheckResult, len(batch))
	for i, r := range batch {
		if r.Result != nil {
			results[i] = r.Result
			continue
		}
		p.logger.Error("claim check failed", "claim", r.Claim, "error", r.Error)
		results[i] = failed(r.Claim, r.Error, p.now().UTC())
	}
	return results
}

// assemble builds the final result from a model verdict
func assemble(claim string, raw model.RawVerdict, evidence []model.Evidence) *model.FactCheckResult {
	verdict, pct := score.Normalize(raw)

	urls := make([]string, 0, len(evidence))
	sources := make([]model.SourceRecord, 0, len(evidence))
	for _, ev := range evidence {
		urls = append(urls, ev.URL)
		sources = append(sources, model.SourceRecord{
			Title:   ev.Title,
			Link:    ev.URL,
			Snippet: extract.FirstRunes(ev.Text, maxSourceSnippet),
		})
	}

	return &model.FactCheckResult{
		Claim:              claim,
		Verdict:            verdict,
		Score:              pct,
		ExplanationSnippet: raw.Summary,
		URLs:               urls,
		Explanation:        raw.Reasoning,
		Sources:            sources,
		Status:             model.StatusOK,
		Raw:                raw,
		Evidence:           evidence,
	}
}

// degraded builds the result for a claim that never reached the model
func degraded(claim string, status model.AggregationStatus, label string, confidence float64, summary string) *model.FactCheckResult {
	raw := model.RawVerdict{
		Verdict:    label,
		Confidence: model.Confidence(confidence),
		Summary:    summary,
		Reasoning:  summary,
	}
	result := assemble(claim, raw, nil)
	result.Status = status
	return result
}

func failed(claim string, err error, at time.Time) *model.FactCheckResult {
	reason := "claim was not checked"
	if err != nil {
		reason = err.Error()
	}
	result := assemble(claim, model.RawVerdict{
		Verdict:   model.LabelError,
		Summary:   "Fact-check failed",
		Reasoning: "Error: " + reason,
	}, nil)
	result.CheckedAt = at
	return result
}
