// Package webhook delivers fact-check results to the verified-claims backend.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

const (
	checkPath  = "/api/verifiedClaims/check"
	createPath = "/api/verifiedClaims/create"

	errorBodyLimit = 512
)

// Outcome is the result of delivering one fact-check
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Accepted reports whether the backend now holds the result
func (o Outcome) Accepted() bool {
	return o == OutcomeCreated || o == OutcomeDuplicate
}

// Client talks to the verified-claims backend
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg model.WebhookConfig, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("webhook base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse webhook base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "webhook"),
	}, nil
}

// Deliver sends result unless the backend already holds the same claim and
// verdict. A failed duplicate check counts as a failed delivery.
func (c *Client) Deliver(ctx context.Context, result *model.FactCheckResult) (Outcome, error) {
	exists, err := c.Exists(ctx, result.Claim, result.Verdict)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		c.logger.Info("claim already exists, skipping", "claim", result.Claim)
		return OutcomeDuplicate, nil
	}

	if err := c.Create(ctx, result); err != nil {
		return OutcomeFailed, err
	}
	c.logger.Info("verified claim saved", "claim", result.Claim, "verdict", string(result.Verdict))
	return OutcomeCreated, nil
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// Exists asks whether the backend already stores claim with verdict. A
// non-200 answer is treated as "not stored"; transport failures are errors.
func (c *Client) Exists(ctx context.Context, claim string, verdict model.Verdict) (bool, error) {
	params := url.Values{}
	params.Set("claim", claim)
	params.Set("verdict", string(verdict))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+checkPath+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("duplicate check returned non-200", "status", resp.StatusCode)
		return false, nil
	}

	var parsed existsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Exists, nil
}

// Create posts the wire form of result. 200 and 201 are success.
func (c *Client) Create(ctx context.Context, result *model.FactCheckResult) error {
	payload := *result
	if !payload.Verdict.IsValid() {
		payload.Verdict = model.VerdictUnverified
	}
	if payload.URLs == nil {
		payload.URLs = []string{}
	}
	if payload.Sources == nil {
		payload.Sources = []model.SourceRecord{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
