// Package mymemory is a translate.Translator backed by the MyMemory
// translation memory API.
package mymemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.mymemory.translated.net"

// ErrQuotaExceeded is returned when the service answers with a usage warning
// instead of a translation.
var ErrQuotaExceeded = errors.New("mymemory: quota exceeded")

// Provider translates short texts through MyMemory.
type Provider struct {
	baseURL    string
	email      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a Provider with the public MyMemory URL. email is
// optional and raises the anonymous daily quota.
func NewProvider(email string, logger *slog.Logger) *Provider {
	return NewProviderWithURL(defaultBaseURL, email, logger)
}

// NewProviderWithURL creates a Provider with a custom base URL (for testing).
func NewProviderWithURL(baseURL, email string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("adapter", "mymemory"),
	}
}

type apiResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  status `json:"responseStatus"`
	ResponseDetails string `json:"responseDetails"`
}

// status accepts both 200 and "200"; the API is not consistent about it.
type status int

func (s *status) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("mymemory: bad responseStatus %s", b)
	}
	*s = status(n)
	return nil
}

// Translate implements translate.Translator.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", langCode(sourceLang)+"|"+langCode(targetLang))
	if p.email != "" {
		q.Set("de", p.email)
	}
	reqURL := p.baseURL + "/get?" + q.Encode()

	p.log.DebugContext(ctx, "mymemory request", slog.String("text", text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("mymemory: create request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, req, text)
	if err != nil {
		return "", fmt.Errorf("mymemory: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mymemory: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("mymemory: read body: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("mymemory: decode json: %w", err)
	}
	if out.ResponseStatus != 0 && out.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("mymemory: response status %d: %s", out.ResponseStatus, out.ResponseDetails)
	}

	translated := strings.TrimSpace(out.ResponseData.TranslatedText)
	if strings.Contains(strings.ToUpper(translated), "MYMEMORY WARNING") {
		return "", ErrQuotaExceeded
	}

	p.log.DebugContext(ctx, "mymemory response",
		slog.String("text", text),
		slog.Int("status", resp.StatusCode),
		slog.String("translation", translated),
	)
	return translated, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (p *Provider) doWithRetry(ctx context.Context, req *http.Request, text string) (*http.Response, error) {
	resp, err := p.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	p.log.WarnContext(ctx, "mymemory retry", slog.String("text", text), slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	timer := time.NewTimer(200 * time.Millisecond)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	}

	return p.httpClient.Do(req)
}

func langCode(lang string) string {
	switch strings.ToLower(lang) {
	case "", "zh", "zh-cn", "zh-hans":
		return "zh-CN"
	default:
		return lang
	}
}
