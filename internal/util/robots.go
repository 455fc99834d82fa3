package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsGate answers whether a URL may be fetched under its host's robots.txt.
// Parsed files are kept per scheme and host for the life of the process.
type RobotsGate struct {
	mu         sync.RWMutex
	hosts      map[string]*robotstxt.RobotsData
	httpClient *http.Client
	userAgent  string
	agent      string
}

// NewRobotsGate creates a gate that fetches robots.txt with userAgent
func NewRobotsGate(userAgent string, timeout time.Duration) *RobotsGate {
	return &RobotsGate{
		hosts:      make(map[string]*robotstxt.RobotsData),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		agent:      ProductToken(userAgent),
	}
}

// Check returns whether rawURL is allowed and the host's crawl delay.
// An unreachable or unparsable robots.txt allows the fetch.
func (g *RobotsGate) Check(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := g.robots(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	var delay time.Duration
	group := data.FindGroup(g.agent)
	if group != nil {
		delay = group.CrawlDelay
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, g.agent), delay, nil
}

// Allowed is Check without the crawl delay; parse failures disallow
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	allowed, _, err := g.Check(ctx, rawURL)
	return err == nil && allowed
}

func (g *RobotsGate) robots(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	origin := target.Scheme + "://" + target.Host

	g.mu.RLock()
	data, ok := g.hosts[origin]
	g.mu.RUnlock()
	if ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// FromResponse treats 4xx as allow-all and 5xx as disallow-all
	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	g.mu.Lock()
	g.hosts[origin] = data
	g.mu.Unlock()

	return data, nil
}

// ProductToken returns the product name robots.txt groups are matched
// against, e.g. "Mozilla" for a browser user agent
func ProductToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	return strings.SplitN(fields[0], "/", 2)[0]
}
