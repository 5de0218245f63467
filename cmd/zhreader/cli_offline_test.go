package main_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCLI_AnnotateURLOffline(t *testing.T) {
	tmp := t.TempDir()

	// Try both package-relative and repo-root-relative paths to the fixture.
	fixture := filepath.Join("..", "..", "pkg", "article", "testdata", "sample_article.html")
	body, err := os.ReadFile(fixture)
	if err != nil {
		body, err = os.ReadFile("pkg/article/testdata/sample_article.html")
	}
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	bin := filepath.Join(tmp, "zhreader.bin")
	build := exec.Command("go", "build", "-o", bin, "github.com/japaniel/zhreader/cmd/zhreader")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "annotate", "--offline", "--url", srv.URL, "--format", "json")
	cmd.Dir = tmp
	cmd.Env = append(os.Environ(), "CONFIG_PATH=", "LOG_LEVEL=error")
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("cli timed out, output:\n%s", out)
	}
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		t.Fatalf("cli failed: %v\nstdout:\n%s\nstderr:\n%s", err, out, stderr)
	}

	var result struct {
		Title  string `json:"title"`
		Tokens []struct {
			Text        string `json:"text"`
			Pinyin      string `json:"pinyin"`
			Translation string `json:"translation"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !strings.Contains(result.Title, "学习中文") {
		t.Errorf("unexpected title %q", result.Title)
	}
	if len(result.Tokens) == 0 {
		t.Fatal("expected tokens")
	}
	var sawToday bool
	for _, tok := range result.Tokens {
		if tok.Text == "今天" {
			sawToday = true
			if tok.Pinyin != "jīn tiān" || tok.Translation != "today" {
				t.Errorf("unexpected annotation %+v", tok)
			}
		}
		if tok.Translation == "" {
			t.Fatalf("token %q has no translation", tok.Text)
		}
	}
	if !sawToday {
		t.Error("expected 今天 among the tokens")
	}
}
