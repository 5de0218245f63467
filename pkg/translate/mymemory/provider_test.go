package mymemory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvider_Translate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "世界" {
			t.Errorf("unexpected q: %q", q)
		}
		if lp := r.URL.Query().Get("langpair"); lp != "zh-CN|en" {
			t.Errorf("unexpected langpair: %q", lp)
		}
		if de := r.URL.Query().Get("de"); de != "me@example.com" {
			t.Errorf("unexpected de: %q", de)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responseData":{"translatedText":" world ","match":1},"responseStatus":200,"responseDetails":""}`))
	}))
	defer srv.Close()

	p := NewProviderWithURL(srv.URL, "me@example.com", newTestLogger())
	got, err := p.Translate(context.Background(), "世界", "zh", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "world" {
		t.Fatalf("expected %q, got %q", "world", got)
	}
}

func TestProvider_Translate_StringStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":"INVALID LANGUAGE PAIR"},"responseStatus":"403","responseDetails":"INVALID LANGUAGE PAIR"}`))
	}))
	defer srv.Close()

	p := NewProviderWithURL(srv.URL, "", newTestLogger())
	if _, err := p.Translate(context.Background(), "世界", "zh", "xx"); err == nil {
		t.Fatal("expected error for responseStatus 403")
	}
}

func TestProvider_Translate_QuotaWarning(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":"MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS FOR TODAY"},"responseStatus":200}`))
	}))
	defer srv.Close()

	p := NewProviderWithURL(srv.URL, "", newTestLogger())
	_, err := p.Translate(context.Background(), "世界", "zh", "en")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestProvider_Translate_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	p := NewProviderWithURL(srv.URL, "", newTestLogger())
	if _, err := p.Translate(context.Background(), "世界", "zh", "en"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProvider_Translate_RetryOn5xx(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"responseData":{"translatedText":"world"},"responseStatus":200}`))
	}))
	defer srv.Close()

	p := NewProviderWithURL(srv.URL, "", newTestLogger())
	got, err := p.Translate(context.Background(), "世界", "zh", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "world" {
		t.Fatalf("expected world, got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestProvider_Translate_NoRetryOn4xx(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewProviderWithURL(srv.URL, "", newTestLogger())
	if _, err := p.Translate(context.Background(), "世界", "zh", "en"); err == nil {
		t.Fatal("expected error for 429")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
}

func TestProvider_Translate_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":"world"},"responseStatus":200}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProviderWithURL(srv.URL, "", newTestLogger())
	if _, err := p.Translate(ctx, "世界", "zh", "en"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
