package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

func TestScoreReturnsScoresInInputOrder(t *testing.T) {
	healthCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			healthCalls++
		case "/rerank":
			var req rerankRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Query != "budget" {
				t.Errorf("unexpected request: %+v", req)
			}
			if len(req.Texts) == 1 {
				_, _ = w.Write([]byte(`[{"index":0,"score":0.5}]`))
				return
			}
			if len(req.Texts) != 2 {
				t.Errorf("unexpected request: %+v", req)
			}
			// Out of input order on purpose.
			_, _ = w.Write([]byte(`[{"index":1,"score":0.9},{"index":0,"score":0.2}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "bge-reranker-base")
	scores, err := client.Score(context.Background(), "budget", []string{"first", "second"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.2 || scores[1] != 0.9 {
		t.Fatalf("scores = %+v, want [0.2 0.9]", scores)
	}

	if _, err := client.Score(context.Background(), "budget", []string{"third"}); err != nil {
		t.Fatalf("Score() second call error = %v", err)
	}
	if healthCalls != 1 {
		t.Fatalf("health calls = %d, want the load memoized after success", healthCalls)
	}
}

func TestScoreSkipsEmptyInput(t *testing.T) {
	client := New("http://unused", "bge-reranker-base")
	scores, err := client.Score(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores != nil {
		t.Fatalf("scores = %+v, want nil", scores)
	}
}

func TestFailedLoadIsReportedAndRetried(t *testing.T) {
	healthy := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			if !healthy {
				http.Error(w, "model loading", http.StatusServiceUnavailable)
			}
		case "/rerank":
			_, _ = w.Write([]byte(`[{"index":0,"score":0.5}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "bge-reranker-base")
	_, err := client.Score(context.Background(), "budget", []string{"text"})
	if !domain.IsKind(err, domain.ErrRerankerUnavailable) {
		t.Fatalf("err = %v, want ErrRerankerUnavailable", err)
	}

	healthy = true
	scores, err := client.Score(context.Background(), "budget", []string{"text"})
	if err != nil {
		t.Fatalf("Score() after recovery error = %v", err)
	}
	if len(scores) != 1 || scores[0] != 0.5 {
		t.Fatalf("scores = %+v", scores)
	}
}

func TestScoreRejectsOutOfRangeIndexes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rerank" {
			_, _ = w.Write([]byte(`[{"index":5,"score":0.9}]`))
		}
	}))
	defer server.Close()

	client := New(server.URL, "bge-reranker-base")
	if _, err := client.Score(context.Background(), "budget", []string{"only"}); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}
