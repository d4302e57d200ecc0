// Package tei scores query/document pairs against a text-embeddings-inference
// style /rerank endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client

	mu     sync.Mutex
	loaded bool
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one relevance score per text, in input order. The model is
// loaded on first use; a failed load is reported for this call and retried
// on the next one.
func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	payload := rerankRequest{Query: query, Texts: texts}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(texts))
	for _, result := range results {
		if result.Index < 0 || result.Index >= len(scores) {
			return nil, fmt.Errorf("rerank: index %d out of range", result.Index)
		}
		scores[result.Index] = result.Score
	}
	return scores, nil
}

// ensureLoaded checks the endpoint once and memoizes success only, so an
// unavailable model does not poison later queries.
func (c *Client) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return domain.WrapError(domain.ErrRerankerUnavailable, "reranker load", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrRerankerUnavailable, "reranker load", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("reranker health status: %s", resp.Status)
		return domain.WrapError(domain.ErrRerankerUnavailable, "reranker load", err)
	}

	c.loaded = true
	return nil
}
