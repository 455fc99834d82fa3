// Package store opens the claim store named by configuration.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/store/mongo"
	"github.com/ppiankov/claimcheck/internal/store/postgres"
)

// ClaimStore holds claims awaiting a fact-check
type ClaimStore interface {
	// FetchUnverified returns every claim not yet marked verified
	FetchUnverified(ctx context.Context) ([]model.Claim, error)
	// MarkVerified flags a claim so later cycles skip it
	MarkVerified(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// Open connects to the store selected by cfg.Driver
func Open(ctx context.Context, cfg model.StoreConfig) (ClaimStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "mongo", "mongodb", "":
		s, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql":
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: mongo, postgres)", cfg.Driver)
	}
}
