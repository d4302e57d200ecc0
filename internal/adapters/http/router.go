// Package httpadapter exposes the assistant over HTTP: staged and streamed
// query endpoints, the tool listing, health, and metrics.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
	"github.com/nimbusworks/workspace-assistant/internal/observability/metrics"
	"github.com/nimbusworks/workspace-assistant/internal/tools"
)

type Router struct {
	queries ports.QueryService
	catalog *tools.Catalog
	metrics *metrics.HTTPServerMetrics
	service string
}

func NewRouter(queries ports.QueryService, catalog *tools.Catalog, m *metrics.HTTPServerMetrics, service string) *Router {
	return &Router{
		queries: queries,
		catalog: catalog,
		metrics: m,
		service: service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/query/stream", rt.queryStream)
	mux.HandleFunc("/v1/tools", rt.listTools)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	answer, err := rt.queries.Ask(r.Context(), req)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) queryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	events := rt.queries.StreamQuery(r.Context(), req)
	streamEvents(w, events)
}

func (rt *Router) listTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	type toolView struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Destructive bool   `json:"destructive"`
	}

	descriptors := rt.catalog.Descriptors()
	out := make([]toolView, 0, len(descriptors))
	for _, descriptor := range descriptors {
		out = append(out, toolView{
			Name:        descriptor.Name,
			Description: descriptor.Description,
			Destructive: descriptor.Destructive,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (domain.QueryRequest, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return domain.QueryRequest{}, false
	}

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return domain.QueryRequest{}, false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return domain.QueryRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
