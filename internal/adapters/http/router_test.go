package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/tools"
)

type queryFake struct {
	answer *domain.QueryAnswer
	err    error
	events []domain.QueryEvent
}

func (f queryFake) Ask(context.Context, domain.QueryRequest) (*domain.QueryAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f queryFake) StreamQuery(context.Context, domain.QueryRequest) <-chan domain.QueryEvent {
	out := make(chan domain.QueryEvent, len(f.events))
	for _, event := range f.events {
		out <- event
	}
	close(out)
	return out
}

func manifestCatalog(t *testing.T) *tools.Catalog {
	t.Helper()
	catalog, err := tools.NewCatalogFromManifest()
	if err != nil {
		t.Fatalf("NewCatalogFromManifest: %v", err)
	}
	return catalog
}

func postQuery(t *testing.T, handler http.Handler, path string, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryReturnsStagedAnswer(t *testing.T) {
	service := queryFake{answer: &domain.QueryAnswer{
		Intent:  domain.IntentSearch,
		Text:    "the runbook lives in the ops space",
		Sources: []domain.CandidateDocument{{SourceType: domain.SourcePage, Text: "Runbook"}},
	}}
	handler := NewRouter(service, manifestCatalog(t), nil, "api").Handler()

	res := postQuery(t, handler, "/v1/query", map[string]any{"query": "where is the runbook"})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}

	var answer domain.QueryAnswer
	if err := json.Unmarshal(res.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Text != "the runbook lives in the ops space" || len(answer.Sources) != 1 {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestQueryMapsDomainErrorsToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "query", errors.New("empty")), http.StatusBadRequest},
		{"tool not found", domain.WrapError(domain.ErrToolNotFound, "bind", errors.New("missing")), http.StatusNotFound},
		{"reranker unavailable", domain.WrapError(domain.ErrRerankerUnavailable, "load", errors.New("down")), http.StatusServiceUnavailable},
		{"temporary", domain.WrapError(domain.ErrTemporary, "llm", errors.New("503")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(queryFake{err: tc.err}, manifestCatalog(t), nil, "api").Handler()
			res := postQuery(t, handler, "/v1/query", map[string]any{"query": "anything"})
			if res.Code != tc.want {
				t.Fatalf("status = %d, want %d", res.Code, tc.want)
			}
		})
	}
}

func TestQueryRejectsBadRequests(t *testing.T) {
	handler := NewRouter(queryFake{}, manifestCatalog(t), nil, "api").Handler()

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/query", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", res.Code)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader("{not json"))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", res.Code)
		}
	})

	t.Run("blank query", func(t *testing.T) {
		res := postQuery(t, handler, "/v1/query", map[string]any{"query": "   "})
		if res.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", res.Code)
		}
	})
}

func TestQueryStreamWritesSSEFrames(t *testing.T) {
	service := queryFake{events: []domain.QueryEvent{
		domain.StatusEvent("Calling tool: send_message"),
		domain.TokenEvent("Done."),
		domain.DoneEvent(),
	}}
	handler := NewRouter(service, manifestCatalog(t), nil, "api").Handler()

	res := postQuery(t, handler, "/v1/query/stream", map[string]any{"query": "tell ops we shipped"})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	body := res.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 4 {
		t.Fatalf("frames = %d, want 4:\n%s", len(frames), body)
	}
	for i, frame := range frames {
		if !strings.HasPrefix(frame, "data: ") {
			t.Fatalf("frame %d missing data prefix: %q", i, frame)
		}
	}
	if frames[3] != "data: [DONE]" {
		t.Fatalf("final frame = %q, want the [DONE] marker", frames[3])
	}

	var first domain.QueryEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first); err != nil {
		t.Fatalf("decode first frame: %v", err)
	}
	if first.Type != domain.EventStatus || !strings.Contains(first.Content, "send_message") {
		t.Fatalf("first event = %+v", first)
	}
}

func TestListToolsExposesCatalog(t *testing.T) {
	handler := NewRouter(queryFake{}, manifestCatalog(t), nil, "api").Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}

	var payload struct {
		Tools []struct {
			Name        string `json:"name"`
			Destructive bool   `json:"destructive"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode tools: %v", err)
	}
	if len(payload.Tools) != 7 {
		t.Fatalf("tools = %d, want 7", len(payload.Tools))
	}

	destructive := map[string]bool{}
	for _, tool := range payload.Tools {
		destructive[tool.Name] = tool.Destructive
	}
	if !destructive["delete_message"] || !destructive["archive_channel"] {
		t.Fatalf("destructive flags missing: %+v", destructive)
	}
	if destructive["workspace_search"] || destructive["send_message"] {
		t.Fatalf("unexpected destructive flags: %+v", destructive)
	}
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(queryFake{}, manifestCatalog(t), nil, "api").Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
}
