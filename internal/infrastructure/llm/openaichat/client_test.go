package openaichat

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

func TestCompleteSendsMessagesAndTrimsAnswer(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  an answer\n"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "sk-test", "chat-model", "embed-model", nil)
	answer, err := client.Complete(context.Background(), ports.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "an answer" {
		t.Fatalf("answer = %q", answer)
	}
	if captured.Model != "chat-model" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.Stream {
		t.Fatal("stream must be false for Complete")
	}
	if len(captured.Messages) != 2 || captured.Messages[1].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
}

func TestCompleteIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "", "chat-model", "embed-model", nil)
	_, err := client.Complete(context.Background(), ports.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected a temporary failure, got %v", err)
	}
}

func TestGenerateJSONRequestsAJSONObject(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"intent\":\"search\"}"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "chat-model", "embed-model", nil)
	raw, err := client.GenerateJSON(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if raw != `{"intent":"search"}` {
		t.Fatalf("raw = %q", raw)
	}
	if captured.ResponseFormat["type"] != "json_object" {
		t.Fatalf("response_format = %+v", captured.ResponseFormat)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != domain.RoleUser {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
}

func TestEmbedQueryPrefixesAndNormalizes(t *testing.T) {
	var captured embeddingsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[3,4]}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "chat-model", "embed-model", nil)
	vector, err := client.EmbedQuery(context.Background(), "where is the runbook")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(captured.Input) != 1 || captured.Input[0] != "search_query: where is the runbook" {
		t.Fatalf("input = %+v", captured.Input)
	}
	if captured.Model != "embed-model" {
		t.Fatalf("model = %q", captured.Model)
	}
	if len(vector) != 2 {
		t.Fatalf("vector = %+v", vector)
	}
	var norm float64
	for _, x := range vector {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Fatalf("vector norm squared = %f, want 1", norm)
	}
	if math.Abs(float64(vector[0])-0.6) > 1e-6 || math.Abs(float64(vector[1])-0.8) > 1e-6 {
		t.Fatalf("vector = %+v, want [0.6 0.8]", vector)
	}
}

func TestEmbedDocumentsMapsResultsByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		for i, input := range req.Input {
			if !strings.HasPrefix(input, "search_document: ") {
				t.Errorf("input %d missing document prefix: %q", i, input)
			}
		}
		// Out of order on purpose.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "chat-model", "embed-model", nil)
	vectors, err := client.EmbedDocuments(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("vectors out of order: %+v", vectors)
	}
}

func TestEmbedDocumentsSkipsEmptyInput(t *testing.T) {
	client := New("http://unused", "", "chat-model", "embed-model", nil)
	vectors, err := client.EmbedDocuments(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if vectors != nil {
		t.Fatalf("vectors = %+v, want nil", vectors)
	}
}
