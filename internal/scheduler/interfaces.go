package scheduler

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/webhook"
)

type ClaimStore interface {
	FetchUnverified(ctx context.Context) ([]model.Claim, error)
	MarkVerified(ctx context.Context, id string) error
}

type Checker interface {
	CheckClaim(ctx context.Context, claim model.Claim) *model.FactCheckResult
	RunConcurrent(ctx context.Context, texts []string) []*model.FactCheckResult
}

type Deliverer interface {
	Deliver(ctx context.Context, result *model.FactCheckResult) (webhook.Outcome, error)
}

type Publisher interface {
	Publish(ctx context.Context, result *model.FactCheckResult, delivery string) error
}
