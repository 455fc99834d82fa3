package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/observability"
	"github.com/ppiankov/claimcheck/internal/webhook"
)

// CycleStats summarizes one pass over the unverified claims
type CycleStats struct {
	Fetched        int
	Checked        int
	Delivered      int
	Duplicates     int
	DeliveryFailed int
	Published      int
	Marked         int
	Errors         int
	Duration       time.Duration
}

// Cycle fetches unverified claims, checks them, delivers the results and
// marks the claims verified according to the mark policy
type Cycle struct {
	store      ClaimStore
	checker    Checker
	deliverer  Deliverer
	publisher  Publisher
	markPolicy string
	concurrent bool
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewCycle creates a cycle. deliverer and publisher may be nil.
func NewCycle(
	store ClaimStore,
	checker Checker,
	deliverer Deliverer,
	publisher Publisher,
	cfg model.CycleConfig,
	logger *slog.Logger,
) *Cycle {
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.MarkPolicy
	if policy != model.MarkAlways {
		policy = model.MarkOnDelivery
	}
	return &Cycle{
		store:      store,
		checker:    checker,
		deliverer:  deliverer,
		publisher:  publisher,
		markPolicy: policy,
		concurrent: cfg.Concurrent,
		logger:     logger.With("component", "cycle"),
	}
}

// SetMetrics attaches cycle and delivery counters
func (c *Cycle) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// RunOnce performs one cycle. Only a failure to read the store is an
// error; per-claim problems are counted in the stats. Cancellation is
// honored between claims, a claim already started runs to completion.
func (c *Cycle) RunOnce(ctx context.Context) (*CycleStats, error) {
	start := time.Now()

	claims, err := c.store.FetchUnverified(ctx)
	if err != nil {
		c.metrics.ObserveCycle(err)
		return nil, fmt.Errorf("fetch unverified claims: %w", err)
	}

	stats := &CycleStats{Fetched: len(claims)}
	c.logger.Info("starting cycle", "claims", len(claims), "concurrent", c.concurrent, "mark_policy", c.markPolicy)

	// In-flight work must not be cut short by shutdown
	work := context.WithoutCancel(ctx)

	if c.concurrent && len(claims) > 0 {
		texts := make([]string, len(claims))
		for i, claim := range claims {
			texts[i] = claim.Text
		}
		results := c.checker.RunConcurrent(work, texts)
		for i, claim := range claims {
			if i >= len(results) || results[i] == nil {
				stats.Errors++
				continue
			}
			results[i].ClaimID = claim.ID
			c.finish(work, claim, results[i], stats)
		}
	} else {
		for _, claim := range claims {
			if ctx.Err() != nil {
				c.logger.Info("cycle interrupted", "checked", stats.Checked, "remaining", len(claims)-stats.Checked)
				break
			}
			c.finish(work, claim, c.checker.CheckClaim(work, claim), stats)
		}
	}

	stats.Duration = time.Since(start)
	c.metrics.ObserveCycle(nil)
	c.logger.Info("cycle completed",
		"fetched", stats.Fetched,
		"checked", stats.Checked,
		"delivered", stats.Delivered,
		"duplicates", stats.Duplicates,
		"delivery_failed", stats.DeliveryFailed,
		"published", stats.Published,
		"marked", stats.Marked,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

// finish delivers, publishes and marks one checked claim
func (c *Cycle) finish(ctx context.Context, claim model.Claim, result *model.FactCheckResult, stats *CycleStats) {
	log := c.logger.With("claim_id", claim.ID)
	stats.Checked++

	accepted := true
	var outcome webhook.Outcome
	if c.deliverer != nil {
		var err error
		outcome, err = c.deliverer.Deliver(ctx, result)
		if err != nil {
			log.Warn("delivery failed", "error", err)
		}
		c.metrics.ObserveDelivery(string(outcome))

		switch outcome {
		case webhook.OutcomeCreated:
			stats.Delivered++
		case webhook.OutcomeDuplicate:
			stats.Duplicates++
		default:
			stats.DeliveryFailed++
		}
		accepted = outcome.Accepted()
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, result, string(outcome)); err != nil {
			log.Warn("publish failed", "error", err)
			stats.Errors++
			if c.deliverer == nil {
				accepted = false
			}
		} else {
			stats.Published++
		}
	}

	if c.markPolicy == model.MarkOnDelivery && !accepted {
		log.Info("leaving claim unverified for retry")
		return
	}

	if err := c.store.MarkVerified(ctx, claim.ID); err != nil {
		log.Error("failed to mark claim verified", "error", err)
		stats.Errors++
		return
	}
	stats.Marked++
}
