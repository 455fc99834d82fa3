package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/observability"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// minBodyBytes is the smallest response body worth extracting
const minBodyBytes = 500

// documentExtensions are never fetched; they are not HTML articles
var documentExtensions = []string{".pdf", ".doc", ".docx", ".xlsx"}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

// errInvalidRequest marks a URL that could not be turned into a request
var errInvalidRequest = errors.New("invalid request")

// errUnsupportedContent marks a response that is not an HTML document
var errUnsupportedContent = errors.New("unsupported content type")

// htmlMediaTypes are the response types handed to the article extractor
var htmlMediaTypes = []string{"text/html", "application/xhtml+xml"}

// errThinContent marks a page that loaded but held too little readable text
var errThinContent = errors.New("too little content")

// Page is a fetched HTML document
type Page struct {
	HTML       string
	StatusCode int
	FinalURL   string
}

// Fetcher downloads articles and reduces them to readable text
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBytes    int64
	maxAttempts int
	backoff     time.Duration
	articles    *extract.ArticleExtractor
	cache       cache.Cache
	cacheTTL    time.Duration
	limiter     *worker.Limiter
	robots      *util.RobotsGate
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewFetcher creates a fetcher from cfg. Caching, rate limiting and the
// robots.txt gate are set up from their config sections.
func NewFetcher(cfg *model.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	attempts := cfg.HTTP.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	maxBytes := cfg.HTTP.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}
	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = model.DefaultUserAgent
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTP),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent:   userAgent,
		maxBytes:    maxBytes,
		maxAttempts: attempts,
		backoff:     cfg.HTTP.RetryBackoff,
		articles:    extract.NewArticleExtractor(model.MaxEvidenceText),
		cache:       cache.New(cfg.Cache),
		cacheTTL:    cfg.Cache.TTL,
		limiter:     worker.NewLimiter(cfg.RateLimiting),
		logger:      logger.With("component", "fetcher"),
	}

	if cfg.HTTP.RespectRobots {
		f.robots = util.NewRobotsGate(userAgent, cfg.HTTP.Timeout)
	}

	return f
}

// SetMetrics attaches extraction counters
func (f *Fetcher) SetMetrics(m *observability.Metrics) {
	f.metrics = m
}

// Extract returns up to 5000 characters of readable article text from
// rawURL, or "" when nothing usable could be obtained. It never fails.
func (f *Fetcher) Extract(ctx context.Context, rawURL string) string {
	log := f.logger.With("url", rawURL)

	if isDocumentURL(rawURL) {
		f.metrics.ObserveExtraction(observability.ExtractSkipped)
		return ""
	}

	key := cache.ArticleKey(rawURL)
	if f.cache != nil {
		if val, ok := f.cache.Get(key); ok {
			f.metrics.ObserveExtraction(observability.ExtractCached)
			return string(val)
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.Check(ctx, rawURL)
		if err != nil || !allowed {
			log.Debug("blocked by robots.txt")
			f.metrics.ObserveExtraction(observability.ExtractSkipped)
			return ""
		}
		f.limiter.SlowDown(rawURL, delay)
	}

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			f.metrics.ObserveExtraction(observability.ExtractRateLimited)
			return ""
		}

		text, err := f.extractOnce(ctx, rawURL)
		if err == nil {
			if f.cache != nil {
				if cerr := f.cache.Set(key, []byte(text), f.cacheTTL); cerr != nil {
					log.Warn("failed to cache extraction", "error", cerr)
				}
			}
			f.metrics.ObserveExtraction(observability.ExtractOK)
			return text
		}

		if !isRetryableFetchError(err) {
			log.Debug("extraction failed permanently", "error", err)
			f.metrics.ObserveExtraction(observability.ExtractTerminal)
			return ""
		}
		if ctx.Err() != nil {
			f.metrics.ObserveExtraction(observability.ExtractFailed)
			return ""
		}

		log.Debug("extraction attempt failed", "attempt", attempt, "error", err)
		if attempt < f.maxAttempts {
			fetchSleepFunc(f.backoff * time.Duration(attempt))
		}
	}

	f.metrics.ObserveExtraction(observability.ExtractFailed)
	return ""
}

// extractOnce performs one fetch and extraction attempt
func (f *Fetcher) extractOnce(ctx context.Context, rawURL string) (string, error) {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if len(page.HTML) < minBodyBytes {
		return "", fmt.Errorf("body of %d bytes: %w", len(page.HTML), errThinContent)
	}

	text, err := f.articles.Extract(page.HTML)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	if len(text) < model.MinEvidenceText {
		return "", fmt.Errorf("text of %d chars: %w", len(text), errThinContent)
	}

	return text, nil
}

// Fetch retrieves the raw HTML at rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w: %w", errInvalidRequest, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	if err := checkContentType(resp.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// checkContentType accepts HTML media types and a missing header
func checkContentType(header string) error {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil && !errors.Is(err, mime.ErrInvalidMediaParameter) {
		return fmt.Errorf("content type %q: %w", header, errUnsupportedContent)
	}
	for _, t := range htmlMediaTypes {
		if mediaType == t {
			return nil
		}
	}
	return fmt.Errorf("content type %s: %w", mediaType, errUnsupportedContent)
}

// isRetryableFetchError reports whether another attempt could succeed.
// 403 and 404 are final, as are non-HTML responses and requests that could
// not even be built; every other failure is treated as transient.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code != http.StatusForbidden && statusErr.Code != http.StatusNotFound
	}

	return !errors.Is(err, errInvalidRequest) && !errors.Is(err, errUnsupportedContent)
}

// isDocumentURL reports whether the URL path names an office or PDF document
func isDocumentURL(rawURL string) bool {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}

	ext := strings.ToLower(path.Ext(p))
	for _, doc := range documentExtensions {
		if ext == doc {
			return true
		}
	}
	return false
}
