// Package search queries Google Programmable Search for candidate sources.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

const (
	defaultEndpoint = "https://www.googleapis.com/customsearch/v1"
	// logBodyLimit caps the number of response bytes logged on failure
	logBodyLimit = 512
)

// Google is a Programmable Search client
type Google struct {
	apiKey     string
	engineID   string
	endpoint   string
	numResults int
	client     *http.Client
	logger     *slog.Logger
}

// NewGoogle creates a search client from cfg
func NewGoogle(cfg model.SearchConfig, logger *slog.Logger) *Google {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	num := cfg.NumResults
	if num <= 0 || num > 10 {
		num = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Google{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		engineID:   strings.TrimSpace(cfg.EngineID),
		endpoint:   endpoint,
		numResults: num,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With("component", "google_search"),
	}
}

type customSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search returns up to the configured number of results for query, in
// ranking order. Every failure is logged and yields an empty list; the
// error result is always nil.
func (g *Google) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	results, err := g.fetch(ctx, query)
	if err != nil {
		g.logger.Warn("search failed", "query", query, "error", err)
		return []model.SearchResult{}, nil
	}
	return results, nil
}

// fetch performs the Custom Search request. A response without items is an
// empty list, not an error.
func (g *Google) fetch(ctx context.Context, query string) ([]model.SearchResult, error) {
	if g.apiKey == "" {
		return nil, errors.New("google api key is not configured")
	}
	if g.engineID == "" {
		return nil, errors.New("google search engine id (cx) is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	params := req.URL.Query()
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(g.numResults))
	req.URL.RawQuery = params.Encode()

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google search returned status %d: %s", resp.StatusCode, truncate(body, logBodyLimit))
	}

	var parsed customSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]model.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if len(results) == g.numResults {
			break
		}
		results = append(results, model.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}

	g.logger.Debug("search finished", "query", query, "results", len(results), "cost", time.Since(start))
	return results, nil
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
