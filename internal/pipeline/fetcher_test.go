package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

const moonArticle = "Lunar laser ranging experiments show that the Moon recedes from Earth by about 3.8 centimetres every year because of tidal friction."

// articleHTML wraps text in a page large enough to pass the body size check
func articleHTML(text string) string {
	return "<html><head><title>t</title><style>" + strings.Repeat("/* pad */", 60) +
		"</style></head><body><nav>Home News</nav><article><p>" + text + "</p></article></body></html>"
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 2 * time.Second
	cfg.Cache.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 0
	return cfg
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetcher_Extract_Success(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = fmt.Fprint(w, articleHTML(moonArticle))
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil)
	text := fetcher.Extract(context.Background(), server.URL+"/moon")

	if text != moonArticle {
		t.Errorf("Unexpected text: %q", text)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("Expected browser user agent, got %q", gotUA)
	}
	if gotLang == "" {
		t.Error("Expected Accept-Language header")
	}
}

func TestFetcher_Extract_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, articleHTML(moonArticle))
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil)
	if text := fetcher.Extract(context.Background(), server.URL); text != moonArticle {
		t.Errorf("Expected success on retry, got %q", text)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetcher_Extract_TerminalStatus(t *testing.T) {
	noSleep(t)

	for _, code := range []int{http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(code)
			}))
			defer server.Close()

			fetcher := NewFetcher(testConfig(), nil)
			if text := fetcher.Extract(context.Background(), server.URL); text != "" {
				t.Errorf("Expected empty text, got %q", text)
			}
			if attempts.Load() != 1 {
				t.Errorf("Expected no retry for %d, got %d attempts", code, attempts.Load())
			}
		})
	}
}

func TestFetcher_Extract_AttemptsExhausted(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HTTP.MaxAttempts = 3

	fetcher := NewFetcher(cfg, nil)
	if text := fetcher.Extract(context.Background(), server.URL); text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetcher_Extract_ThinContentRetried(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = fmt.Fprint(w, "<html><body>Loading...</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil)
	if text := fetcher.Extract(context.Background(), server.URL); text != "" {
		t.Errorf("Expected empty text for thin page, got %q", text)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected thin content to be retried once, got %d attempts", attempts.Load())
	}
}

func TestFetcher_Extract_ShortTextRejected(t *testing.T) {
	noSleep(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, articleHTML("Too short to be evidence."))
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil)
	if text := fetcher.Extract(context.Background(), server.URL); text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}
}

func TestFetcher_Extract_DocumentsSkipped(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil)
	for _, p := range []string{"/report.pdf", "/REPORT.PDF", "/memo.doc", "/memo.docx", "/sheet.xlsx", "/report.pdf?download=1"} {
		if text := fetcher.Extract(context.Background(), server.URL+p); text != "" {
			t.Errorf("Expected empty text for %s", p)
		}
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no network I/O for documents, got %d requests", hits.Load())
	}
}

func TestFetcher_Extract_NonHTMLRejected(t *testing.T) {
	noSleep(t)

	pdf := "%PDF-1.4 1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj " + strings.Repeat("stream BT /F1 12 Tf ET endstream ", 80)

	tests := []struct {
		name        string
		contentType string
	}{
		{"pdf", "application/pdf"},
		{"octet stream", "application/octet-stream"},
		{"json", "application/json; charset=utf-8"},
		{"malformed", "/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = fmt.Fprint(w, pdf)
			}))
			defer server.Close()

			fetcher := NewFetcher(testConfig(), nil)
			if text := fetcher.Extract(context.Background(), server.URL+"/download?id=7"); text != "" {
				t.Errorf("Expected empty text, got %d chars", len(text))
			}
			if attempts.Load() != 1 {
				t.Errorf("Expected no retry for %s, got %d attempts", tt.contentType, attempts.Load())
			}
		})
	}
}

func TestFetcher_Extract_XHTMLAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xhtml+xml; charset=UTF-8")
		_, _ = fmt.Fprint(w, articleHTML(moonArticle))
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil)
	if text := fetcher.Extract(context.Background(), server.URL); text != moonArticle {
		t.Errorf("Expected XHTML to be extracted, got %q", text)
	}

	if err := checkContentType("text/html; charset"); err != nil {
		t.Errorf("Expected HTML with a broken parameter to pass, got %v", err)
	}
	if err := checkContentType(""); err != nil {
		t.Errorf("Expected a missing header to pass, got %v", err)
	}
}

func TestFetcher_Extract_Cached(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = fmt.Fprint(w, articleHTML(moonArticle))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Hour

	fetcher := NewFetcher(cfg, nil)
	first := fetcher.Extract(context.Background(), server.URL)
	second := fetcher.Extract(context.Background(), server.URL)

	if first != moonArticle || second != moonArticle {
		t.Errorf("Expected cached text to match, got %q and %q", first, second)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected one network fetch, got %d", attempts.Load())
	}
}

func TestFetcher_Extract_RobotsDisallow(t *testing.T) {
	var articleHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		articleHits.Add(1)
		_, _ = fmt.Fprint(w, articleHTML(moonArticle))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HTTP.RespectRobots = true

	fetcher := NewFetcher(cfg, nil)
	if text := fetcher.Extract(context.Background(), server.URL+"/private/moon"); text != "" {
		t.Errorf("Expected disallowed URL to yield nothing, got %q", text)
	}
	if text := fetcher.Extract(context.Background(), server.URL+"/public/moon"); text != moonArticle {
		t.Errorf("Expected allowed URL to be extracted, got %q", text)
	}
	if articleHits.Load() != 1 {
		t.Errorf("Expected only the allowed article to be fetched, got %d", articleHits.Load())
	}
}

func TestFetcher_Extract_MalformedURL(t *testing.T) {
	fetcher := NewFetcher(testConfig(), nil)
	if text := fetcher.Extract(context.Background(), "http://[::1"); text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503}, true},
		{"500", &StatusError{Code: 500}, true},
		{"429", &StatusError{Code: 429}, true},
		{"401", &StatusError{Code: 401}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"wrapped 404", fmt.Errorf("attempt: %w", &StatusError{Code: 404}), false},
		{"connection refused", errors.New("fetch: connection refused"), true},
		{"thin content", fmt.Errorf("body of 10 bytes: %w", errThinContent), true},
		{"not html", fmt.Errorf("content type application/pdf: %w", errUnsupportedContent), false},
		{"bad request", fmt.Errorf("create request: %w: %w", errInvalidRequest, errors.New("bad url")), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
