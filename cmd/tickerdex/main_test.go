package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// keywordEmbeddings serves OpenAI-style embeddings that count a few keywords.
func keywordEmbeddings(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Input) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		text := strings.ToLower(req.Input[0])
		vec := []float32{
			float32(strings.Count(text, "cloud")),
			float32(strings.Count(text, "revenue")),
			float32(strings.Count(text, "risk")),
			1,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": vec}},
			"usage":  map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
}

func writeTestConfig(t *testing.T, embeddingURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`http:
  port: 8090
index:
  root_dir: %s
blob:
  driver: bolt
  bolt_path: %s
embedding:
  api_key: test-key
  base_url: %s
  cache:
    enabled: true
ingest:
  push_after_append: true
logging:
  level: error
`, filepath.Join(dir, "indices"), filepath.Join(dir, "blob.db"), embeddingURL)

	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", "local"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_IngestQuerySync(t *testing.T) {
	srv := keywordEmbeddings(t)
	defer srv.Close()
	cfgPath := writeTestConfig(t, srv.URL)

	docsPath := filepath.Join(t.TempDir(), "docs.txt")
	docs := "cloud revenue up\nrisk factors\nazure cloud\n"
	if err := os.WriteFile(docsPath, []byte(docs), 0o600); err != nil {
		t.Fatalf("write docs: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "ingest", "msft", "-f", docsPath)
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "MSFT: 3/3 documents embedded") || !strings.Contains(out, "pushed to remote") {
		t.Errorf("unexpected ingest output: %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "query", "MSFT", "-k", "1", "cloud", "growth")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if strings.TrimSpace(out) != "azure cloud" {
		t.Errorf("expected nearest document, got %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "query", "GOOG", "anything")
	if err != nil {
		t.Fatalf("query GOOG: %v", err)
	}
	if !strings.Contains(out, "No context found for ticker: GOOG") {
		t.Errorf("expected no-context message, got %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "sync", "list", "--remote")
	if err != nil {
		t.Fatalf("sync list: %v", err)
	}
	if strings.TrimSpace(out) != "MSFT" {
		t.Errorf("expected MSFT on remote, got %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "sync", "pull", "MSFT")
	if err != nil {
		t.Fatalf("sync pull: %v\n%s", err, out)
	}
	if !strings.Contains(out, "MSFT") || !strings.Contains(out, "pull ok") {
		t.Errorf("unexpected pull output: %q", out)
	}
}

func TestCLI_SyncRequiresTickersOrAll(t *testing.T) {
	srv := keywordEmbeddings(t)
	defer srv.Close()
	cfgPath := writeTestConfig(t, srv.URL)

	if _, err := runCLI(t, "--config", cfgPath, "sync", "push"); err == nil {
		t.Fatal("expected error without tickers or --all")
	}
	if _, err := runCLI(t, "--config", cfgPath, "sync", "push", "--all", "MSFT"); err == nil {
		t.Fatal("expected error with both tickers and --all")
	}
}

func TestReadDocuments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lines", "first doc\n\n  second doc  \n", []string{"first doc", "second doc"}},
		{"json", `["a\nmultiline", "b"]`, []string{"a\nmultiline", "b"}},
		{"empty", "   \n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDocuments(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("doc %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadDocuments_BadJSON(t *testing.T) {
	if _, err := readDocuments(strings.NewReader(`["unterminated`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPrintReports(t *testing.T) {
	var out bytes.Buffer
	reports := map[ticker.Symbol]index.SyncReport{
		"MSFT": {Ticker: "MSFT", Direction: index.DirectionPush},
		"AAPL": {Ticker: "AAPL", Direction: index.DirectionPush, Mapping: index.ArtifactResult{Err: fmt.Errorf("boom")}},
	}

	err := printReports(&out, reports)
	if err == nil {
		t.Fatal("expected error when a ticker fails")
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "AAPL") || !strings.HasPrefix(lines[1], "MSFT") {
		t.Errorf("expected sorted output, got %q", out.String())
	}
}
