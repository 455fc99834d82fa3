package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/observability"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/validate"
)

// Searcher finds candidate sources for a query
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

// ContentExtractor turns a URL into readable text, "" meaning nothing usable
type ContentExtractor interface {
	Extract(ctx context.Context, rawURL string) string
}

// Aggregator gathers readable evidence for a claim from trusted sources
type Aggregator struct {
	searcher   Searcher
	extractor  ContentExtractor
	normalizer *extract.ClaimNormalizer
	classifier *validate.TrustClassifier
	relevance  *score.RelevanceScorer
	workers    int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewAggregator creates an aggregator. workers bounds concurrent
// extractions; zero or less means one per search result.
func NewAggregator(
	searcher Searcher,
	extractor ContentExtractor,
	normalizer *extract.ClaimNormalizer,
	classifier *validate.TrustClassifier,
	relevance *score.RelevanceScorer,
	workers int,
	logger *slog.Logger,
) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		searcher:   searcher,
		extractor:  extractor,
		normalizer: normalizer,
		classifier: classifier,
		relevance:  relevance,
		workers:    workers,
		logger:     logger.With("component", "aggregator"),
	}
}

// SetMetrics attaches aggregation counters
func (a *Aggregator) SetMetrics(m *observability.Metrics) {
	a.metrics = m
}

// Aggregate searches for claim and extracts text from every high or medium
// trust result. Evidence keeps search order. A failed search counts as no
// results; a failed extraction only drops that source.
func (a *Aggregator) Aggregate(ctx context.Context, claim string) ([]model.Evidence, model.AggregationStatus) {
	query := a.normalizer.Clean(claim)
	log := a.logger.With("query", query)

	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		log.Warn("search failed", "error", err)
		results = nil
	}
	if len(results) == 0 {
		a.metrics.ObserveAggregation(string(model.StatusNoResults))
		return nil, model.StatusNoResults
	}

	slots := make([]*model.Evidence, len(results))

	g, gCtx := errgroup.WithContext(ctx)
	if a.workers > 0 {
		g.SetLimit(a.workers)
	}

	for i, result := range results {
		i, result := i, result
		tier :=a.classifier.Classify(result.Link)
		if !tier.IsTrusted() {
			log.Debug("skipping low trust source", "url", result.Link)
			continue
		}

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("extraction panicked", "url", result.Link, "panic", fmt.Sprint(r))
				}
			}()

			text := a.extractor.Extract(gCtx, result.Link)
			if utf8.RuneCountInString(text) <= model.MinEvidenceText {
				log.Debug("no usable text", "url", result.Link)
				return nil
			}

			ev := model.Evidence{
				Title: result.Title,
				URL:   result.Link,
				Trust: tier,
				Text:  text,
			}
			if a.relevance != nil {
				ev.Relevance = a.relevance.Score(query, text, a.classifier.DomainTrust(result.Link))
			}
			slots[i] = &ev
			return nil
		})
	}

	// Workers never return errors
	_ = g.Wait()

	var evidence []model.Evidence
	for _, ev := range slots {
		if ev != nil {
			evidence = append(evidence, *ev)
		}
	}

	if len(evidence) == 0 {
		log.Info("no trusted evidence", "results", len(results))
		a.metrics.ObserveAggregation(string(model.StatusNoTrustedSources))
		return nil, model.StatusNoTrustedSources
	}

	log.Info("aggregated evidence", "results", len(results), "evidence", len(evidence))
	a.metrics.ObserveAggregation(string(model.StatusOK))
	return evidence, model.StatusOK
}
