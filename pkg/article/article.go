// Package article downloads a web page and extracts its readable text.
package article

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// MaxBodySize caps how much HTML Fetch reads from a response.
const MaxBodySize = 10 * 1024 * 1024

var (
	ErrTooLarge  = errors.New("article: response body too large")
	ErrBadStatus = errors.New("article: unexpected status")
)

// Article is the readable part of a page.
type Article struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"siteName,omitempty"`
	Text     string `json:"text"`
}

// Fetcher downloads pages with browser-like headers.
type Fetcher struct {
	Client *http.Client
	Logger *slog.Logger
}

// NewFetcher returns a Fetcher with a 30s client timeout.
func NewFetcher(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		Client: &http.Client{Timeout: 30 * time.Second},
		Logger: logger,
	}
}

// Fetch downloads rawURL and extracts the article.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("article: invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("article: create request: %w", err)
	}
	setBrowserHeaders(req)

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("article: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("%w: content-length %d", ErrTooLarge, resp.ContentLength)
	}

	// one extra byte tells a body of exactly MaxBodySize from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("article: read body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}

	a, err := Extract(bytes.NewReader(body), u)
	if err != nil {
		return nil, err
	}
	f.Logger.DebugContext(ctx, "article fetched",
		slog.String("url", rawURL),
		slog.Int("bytes", len(body)),
		slog.Int("text_len", len([]rune(a.Text))),
		slog.Duration("elapsed", time.Since(start)),
	)
	return a, nil
}

// Extract runs readability over an HTML document after stripping ruby
// annotations.
func Extract(r io.Reader, pageURL *url.URL) (*Article, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("article: read html: %w", err)
	}
	parsed, err := readability.FromReader(bytes.NewReader(SanitizeRuby(raw)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("article: extract: %w", err)
	}

	a := &Article{
		Title:    strings.TrimSpace(parsed.Title),
		Byline:   strings.TrimSpace(parsed.Byline),
		SiteName: strings.TrimSpace(parsed.SiteName),
		Text:     strings.TrimSpace(parsed.TextContent),
	}
	if pageURL != nil {
		a.URL = pageURL.String()
	}
	return a, nil
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) so inline pinyin annotations do not end up in the
// extracted text next to the characters they annotate.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}
